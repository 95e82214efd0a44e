package backup

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle(t *testing.T) *Bundle {
	t.Helper()

	records := map[string][]Record{
		"orders": {
			{
				"id":         NumberValue("1"),
				"bar_id":     NumberValue("7"),
				"total":      NumberValue("42.50"),
				"note":       NullValue(),
				"comped":     BoolValue(false),
				"line_items": JSONValue(json.RawMessage(`[{"sku":"beer","qty":2}]`)),
				"created_at": StringValue("2026-08-01T18:30:00Z"),
			},
			{
				"id":     NumberValue("2"),
				"bar_id": NumberValue("7"),
				"total":  NumberValue("9.999999999999999"),
				"note":   StringValue("happy hour"),
				"comped": BoolValue(true),
			},
		},
		"inventory": {
			{"sku": StringValue("gin"), "bar_id": NumberValue("7"), "on_hand": NumberValue("12")},
		},
	}

	tenant := int64(7)
	created := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	return NewBundle([]string{"orders", "inventory"}, records, &tenant, created)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	bundle := sampleBundle(t)

	data, err := SerializeBundle(bundle)
	require.NoError(t, err)

	restored, err := DeserializeBundle(data)
	require.NoError(t, err)

	assert.Equal(t, bundle.Manifest.FormatVersion, restored.Manifest.FormatVersion)
	assert.Equal(t, bundle.Manifest.Tables, restored.Manifest.Tables)
	assert.Equal(t, bundle.Manifest.TotalRecords, restored.Manifest.TotalRecords)
	assert.True(t, bundle.Manifest.CreatedAt.Equal(restored.Manifest.CreatedAt))
	require.NotNil(t, restored.Manifest.TenantID)
	assert.Equal(t, int64(7), *restored.Manifest.TenantID)
	assert.Equal(t, bundle.Records, restored.Records)
}

func TestSerializeIsDeterministic(t *testing.T) {
	bundle := sampleBundle(t)

	first, err := SerializeBundle(bundle)
	require.NoError(t, err)
	second, err := SerializeBundle(bundle)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSerializeRejectsInconsistentManifest(t *testing.T) {
	bundle := sampleBundle(t)
	bundle.Manifest.TotalRecords = 999

	_, err := SerializeBundle(bundle)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeSerialization))
}

func TestSerializeNilBundle(t *testing.T) {
	_, err := SerializeBundle(nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeSerialization))
}

func TestDeserializeRejectsUnknownFormatVersion(t *testing.T) {
	bundle := sampleBundle(t)
	bundle.Manifest.FormatVersion = "2.0"

	data, err := json.Marshal(bundle)
	require.NoError(t, err)

	restored, err := DeserializeBundle(data)
	require.Error(t, err)
	assert.Nil(t, restored)
	assert.True(t, IsErrorType(err, BackupErrorTypeFormatVersion))
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := DeserializeBundle([]byte("not json at all"))
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeSerialization))
}

func TestDeserializeEmptyRecords(t *testing.T) {
	data := []byte(`{"manifest":{"format_version":"1.0","created_at":"2026-08-29T00:00:00Z","tables":[],"total_records":0}}`)

	bundle, err := DeserializeBundle(data)
	require.NoError(t, err)
	assert.NotNil(t, bundle.Records)
	assert.Empty(t, bundle.Records)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := []byte("processed payload bytes")

	for _, algorithm := range []CompressionType{CompressionTypeNone, CompressionTypeGzip, CompressionTypeZstd, CompressionTypeLZ4} {
		for _, encrypted := range []bool{false, true} {
			blob, err := EncodeEnvelope(algorithm, encrypted, payload)
			require.NoError(t, err)
			require.Equal(t, len(payload)+1, len(blob))

			gotAlgorithm, gotEncrypted, gotPayload, err := DecodeEnvelope(blob)
			require.NoError(t, err)
			assert.Equal(t, algorithm, gotAlgorithm)
			assert.Equal(t, encrypted, gotEncrypted)
			assert.Equal(t, payload, gotPayload)
		}
	}
}

func TestEnvelopePayloadFollowsHeader(t *testing.T) {
	// A stored unencrypted object is exactly one header byte followed by the
	// compressed serialization of the bundle.
	bundle := sampleBundle(t)
	serialized, err := SerializeBundle(bundle)
	require.NoError(t, err)

	cm := NewCompressionManager()
	compressed, used := cm.Compress(serialized, CompressionTypeGzip)
	require.Equal(t, CompressionTypeGzip, used)

	blob, err := EncodeEnvelope(used, false, compressed)
	require.NoError(t, err)

	assert.Equal(t, byte(1), blob[0])
	assert.Equal(t, compressed, blob[1:])
}

func TestEncodeEnvelopeUnknownAlgorithm(t *testing.T) {
	_, err := EncodeEnvelope(CompressionType("snappy"), false, []byte("x"))
	require.Error(t, err)
}

func TestDecodeEnvelopeEmptyBlob(t *testing.T) {
	_, _, _, err := DecodeEnvelope(nil)
	require.Error(t, err)
}

func TestDecodeEnvelopeUnknownCompressionCode(t *testing.T) {
	_, _, _, err := DecodeEnvelope([]byte{0x07, 0x01})
	require.Error(t, err)
}
