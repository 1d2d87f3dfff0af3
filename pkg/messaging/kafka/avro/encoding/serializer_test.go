package encoding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "record",
  "name": "Greeting",
  "namespace": "test",
  "fields": [
    {"name": "to", "type": "string"},
    {"name": "count", "type": "int"}
  ]
}`

type greeting struct {
	To    string `avro:"to"`
	Count int    `avro:"count"`
}

type countingResolver struct {
	id    int
	calls int
	err   error
}

func (r *countingResolver) ResolveID(string, string) (int, error) {
	r.calls++
	return r.id, r.err
}

func TestWireFormat_RoundTrip(t *testing.T) {
	data := BuildWireFormat(258, []byte{0xAA, 0xBB})

	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0x02, 0xAA, 0xBB}, data)

	id, payload, err := ParseWireFormat(data)
	require.NoError(t, err)
	assert.Equal(t, 258, id)
	assert.Equal(t, []byte{0xAA, 0xBB}, payload)
}

func TestParseWireFormat_Errors(t *testing.T) {
	_, _, err := ParseWireFormat([]byte{0x00, 0x01})
	assert.ErrorContains(t, err, "data too short")

	_, _, err = ParseWireFormat([]byte{0x01, 0, 0, 0, 1})
	assert.ErrorContains(t, err, "invalid magic byte")
}

func TestSerializer_WireFormat(t *testing.T) {
	resolver := &countingResolver{id: 7}
	s, err := NewSerializer(testSchema, resolver)
	require.NoError(t, err)

	first, err := s.Serialize("newsletter.emails", greeting{To: "reader@example.com", Count: 2})
	require.NoError(t, err)
	_, err = s.Serialize("newsletter.emails", greeting{To: "other@example.com", Count: 1})
	require.NoError(t, err)

	id, _, err := ParseWireFormat(first)
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Equal(t, 1, resolver.calls, "schema id is cached per subject")

	var out greeting
	require.NoError(t, s.Deserialize(first, &out))
	assert.Equal(t, greeting{To: "reader@example.com", Count: 2}, out)
}

func TestSerializer_BareAvro(t *testing.T) {
	s, err := NewSerializer(testSchema, nil)
	require.NoError(t, err)

	data, err := s.Serialize("topic", greeting{To: "a@b.c", Count: 1})
	require.NoError(t, err)

	var out greeting
	require.NoError(t, s.Deserialize(data, &out))
	assert.Equal(t, "a@b.c", out.To)
}

func TestSerializer_Errors(t *testing.T) {
	_, err := NewSerializer(`{"type": "nope"}`, nil)
	assert.ErrorContains(t, err, "failed to parse avro schema")

	registryDown := errors.New("registry down")
	s, err := NewSerializer(testSchema, &countingResolver{err: registryDown})
	require.NoError(t, err)

	_, err = s.Serialize("topic", greeting{To: "a@b.c"})
	assert.ErrorIs(t, err, registryDown)
}

func TestStaticResolver(t *testing.T) {
	id, err := StaticResolver(42).ResolveID("any", "{}")

	require.NoError(t, err)
	assert.Equal(t, 42, id)
}
