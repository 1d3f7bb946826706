package repositories

// CredentialSource supplies the decrypted API key. The core treats the key as
// an opaque token appended to the connection URI; decryption happens outside.
type CredentialSource interface {
	APIKey() (string, error)
}
