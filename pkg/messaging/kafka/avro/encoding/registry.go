package encoding

import (
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
)

// SchemaIDResolver returns the registry id of a schema under a subject.
type SchemaIDResolver interface {
	ResolveID(subject string, schemaJSON string) (int, error)
}

type registryResolver struct {
	client schemaregistry.Client
}

// NewRegistryResolver registers schemas with a Confluent Schema Registry.
// The client caches ids, so repeated calls do not hit the registry.
func NewRegistryResolver(client schemaregistry.Client) SchemaIDResolver {
	return &registryResolver{client: client}
}

func (r *registryResolver) ResolveID(subject string, schemaJSON string) (int, error) {
	id, err := r.client.Register(subject, schemaregistry.SchemaInfo{
		Schema:     schemaJSON,
		SchemaType: "AVRO",
	}, false)
	if err != nil {
		return 0, fmt.Errorf("failed to register schema for subject %s: %w", subject, err)
	}
	return id, nil
}

// StaticResolver always returns the same id. Used when no registry is
// configured and consumers know the schema out of band.
type StaticResolver int

func (s StaticResolver) ResolveID(string, string) (int, error) {
	return int(s), nil
}
