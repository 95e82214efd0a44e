package backup

import (
	"encoding/json"
	"fmt"
)

// SerializeBundle encodes a bundle into its canonical byte stream. The
// encoding round-trips exactly: DeserializeBundle(SerializeBundle(b))
// yields a bundle equal to b.
func SerializeBundle(bundle *Bundle) ([]byte, error) {
	if bundle == nil {
		return nil, NewSerializationError("bundle cannot be nil", nil)
	}
	if err := bundle.Manifest.Validate(bundle.Records); err != nil {
		return nil, NewSerializationError("bundle manifest is inconsistent", err)
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, NewSerializationError("failed to encode bundle", err)
	}
	return data, nil
}

// DeserializeBundle decodes a canonical byte stream back into a bundle.
// It fails with a FORMAT_VERSION_ERROR before the caller can touch the
// datastore if the manifest's format version is not the one this build
// understands.
func DeserializeBundle(data []byte) (*Bundle, error) {
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, NewSerializationError("failed to decode bundle", err)
	}

	if bundle.Manifest.FormatVersion != BundleFormatVersion {
		return nil, NewFormatVersionError(fmt.Sprintf(
			"bundle format version %q is not supported (expected %q)",
			bundle.Manifest.FormatVersion, BundleFormatVersion))
	}

	if bundle.Records == nil {
		bundle.Records = make(map[string][]Record)
	}
	return &bundle, nil
}

// Envelope header layout. Every stored object starts with a single header
// byte so restore never depends on the current configuration matching the
// configuration used at backup time:
//
//	bits 0-2: compression algorithm code
//	bit 3:    encrypted flag
const (
	envelopeCompressionMask byte = 0x07
	envelopeEncryptedFlag   byte = 0x08
)

var compressionCodes = map[CompressionType]byte{
	CompressionTypeNone: 0,
	CompressionTypeGzip: 1,
	CompressionTypeZstd: 2,
	CompressionTypeLZ4:  3,
}

var compressionTypesByCode = map[byte]CompressionType{
	0: CompressionTypeNone,
	1: CompressionTypeGzip,
	2: CompressionTypeZstd,
	3: CompressionTypeLZ4,
}

// EncodeEnvelope prefixes a processed payload with the self-describing
// header byte.
func EncodeEnvelope(algorithm CompressionType, encrypted bool, payload []byte) ([]byte, error) {
	code, ok := compressionCodes[algorithm]
	if !ok {
		return nil, NewSerializationError(fmt.Sprintf("unknown compression algorithm: %s", algorithm), nil)
	}

	header := code & envelopeCompressionMask
	if encrypted {
		header |= envelopeEncryptedFlag
	}

	blob := make([]byte, 0, len(payload)+1)
	blob = append(blob, header)
	blob = append(blob, payload...)
	return blob, nil
}

// DecodeEnvelope splits a stored object into its header flags and payload.
func DecodeEnvelope(blob []byte) (CompressionType, bool, []byte, error) {
	if len(blob) < 1 {
		return CompressionTypeNone, false, nil, NewSerializationError("stored object is empty", nil)
	}

	header := blob[0]
	algorithm, ok := compressionTypesByCode[header&envelopeCompressionMask]
	if !ok {
		return CompressionTypeNone, false, nil,
			NewSerializationError(fmt.Sprintf("unknown compression code in header: %d", header&envelopeCompressionMask), nil)
	}

	encrypted := header&envelopeEncryptedFlag != 0
	return algorithm, encrypted, blob[1:], nil
}
