package backup

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionRoundTrip(t *testing.T) {
	cm := NewCompressionManager()
	data := bytes.Repeat([]byte("order_id,bar_id,total,created_at\n"), 500)

	for _, algorithm := range []CompressionType{CompressionTypeGzip, CompressionTypeZstd, CompressionTypeLZ4} {
		t.Run(string(algorithm), func(t *testing.T) {
			compressed, used := cm.Compress(data, algorithm)
			assert.Equal(t, algorithm, used)
			assert.Less(t, len(compressed), len(data))

			decompressed, err := cm.Decompress(compressed, used)
			require.NoError(t, err)
			assert.Equal(t, data, decompressed)
		})
	}
}

func TestCompressNoneIsPassThrough(t *testing.T) {
	cm := NewCompressionManager()
	data := []byte("as is")

	out, used := cm.Compress(data, CompressionTypeNone)
	assert.Equal(t, CompressionTypeNone, used)
	assert.Equal(t, data, out)
}

func TestCompressUnknownAlgorithmDegradesToPassThrough(t *testing.T) {
	cm := NewCompressionManager()
	data := []byte("payload")

	out, used := cm.Compress(data, CompressionType("snappy"))
	assert.Equal(t, CompressionTypeNone, used)
	assert.Equal(t, data, out)
}

func TestDecompressUnknownAlgorithmIsFatal(t *testing.T) {
	cm := NewCompressionManager()

	_, err := cm.Decompress([]byte("payload"), CompressionType("snappy"))
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeDecompression))
}

func TestDecompressCorruptDataIsFatal(t *testing.T) {
	cm := NewCompressionManager()

	for _, algorithm := range []CompressionType{CompressionTypeGzip, CompressionTypeZstd} {
		t.Run(string(algorithm), func(t *testing.T) {
			_, err := cm.Decompress([]byte("definitely not compressed"), algorithm)
			require.Error(t, err)
			assert.True(t, IsErrorType(err, BackupErrorTypeDecompression))
		})
	}
}

func TestSupportedAlgorithms(t *testing.T) {
	cm := NewCompressionManager()
	algorithms := cm.SupportedAlgorithms()

	assert.Contains(t, algorithms, CompressionTypeNone)
	assert.Contains(t, algorithms, CompressionTypeGzip)
	assert.Contains(t, algorithms, CompressionTypeZstd)
	assert.Contains(t, algorithms, CompressionTypeLZ4)
}
