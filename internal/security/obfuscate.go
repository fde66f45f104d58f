package security

import "encoding/base64"

// DefaultObfuscationKey is the demo passphrase used for log export.
const DefaultObfuscationKey = "SUPER_SECRET_CITY_KEY_2024"

// Obfuscator scrambles log lines with a repeating-key XOR stream and
// base64-encodes the result. This is reversible obfuscation, not
// encryption: it hides log text from a casual reader and nothing more.
type Obfuscator struct {
	key []byte
}

// NewObfuscator builds an obfuscator; an empty key falls back to the default.
func NewObfuscator(key string) *Obfuscator {
	if key == "" {
		key = DefaultObfuscationKey
	}
	return &Obfuscator{key: []byte(key)}
}

// Obfuscate XORs the line with the cycled key and base64-encodes it.
// Deterministic for a given key; independent of input length.
func (o *Obfuscator) Obfuscate(line string) string {
	raw := []byte(line)
	out := make([]byte, len(raw))
	for i, b := range raw {
		out[i] = b ^ o.key[i%len(o.key)]
	}
	return base64.StdEncoding.EncodeToString(out)
}

// Deobfuscate reverses Obfuscate with the same key.
func (o *Obfuscator) Deobfuscate(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(raw))
	for i, b := range raw {
		out[i] = b ^ o.key[i%len(o.key)]
	}
	return string(out), nil
}
