package encoding

import (
	"fmt"
	"sync"

	hambavro "github.com/hamba/avro/v2"
)

// Serializer encodes values of one Avro schema, optionally framed in the
// Confluent wire format.
type Serializer struct {
	schema     hambavro.Schema
	schemaJSON string
	resolver   SchemaIDResolver
	wireFormat bool

	mu  sync.Mutex
	ids map[string]int // subject -> schema id
}

// NewSerializer parses schemaJSON. A nil resolver produces bare Avro bytes.
func NewSerializer(schemaJSON string, resolver SchemaIDResolver) (*Serializer, error) {
	schema, err := hambavro.Parse(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse avro schema: %w", err)
	}
	return &Serializer{
		schema:     schema,
		schemaJSON: schemaJSON,
		resolver:   resolver,
		wireFormat: resolver != nil,
		ids:        make(map[string]int),
	}, nil
}

// Schema returns the parsed schema.
func (s *Serializer) Schema() hambavro.Schema {
	return s.schema
}

// Serialize encodes msg for topic. The subject is "{topic}-value".
func (s *Serializer) Serialize(topic string, msg any) ([]byte, error) {
	payload, err := hambavro.Marshal(s.schema, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal avro data: %w", err)
	}
	if !s.wireFormat {
		return payload, nil
	}

	id, err := s.schemaID(topic + "-value")
	if err != nil {
		return nil, err
	}
	return BuildWireFormat(id, payload), nil
}

func (s *Serializer) schemaID(subject string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.ids[subject]; ok {
		return id, nil
	}
	id, err := s.resolver.ResolveID(subject, s.schemaJSON)
	if err != nil {
		return 0, err
	}
	s.ids[subject] = id
	return id, nil
}

// Deserialize decodes data produced by Serialize into out. The framing is
// detected from the serializer's own configuration.
func (s *Serializer) Deserialize(data []byte, out any) error {
	payload := data
	if s.wireFormat {
		var err error
		if _, payload, err = ParseWireFormat(data); err != nil {
			return err
		}
	}
	if err := hambavro.Unmarshal(s.schema, payload, out); err != nil {
		return fmt.Errorf("failed to unmarshal avro data: %w", err)
	}
	return nil
}
