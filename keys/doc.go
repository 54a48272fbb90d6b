// Package keys manages signing keys for BOM documents.
//
// Ed25519 keys are stored as PEM files: PKCS#8 for private keys and
// SubjectPublicKeyInfo for public keys. Generated pairs are named by a random
// UUID which carries no cryptographic meaning.
//
// A public key is also identified by its self-certifying key id, the URL-safe
// base64 encoding of the raw 32 public key bytes. Signature records embed it so
// verifiers can recover the key without a registry.
//
// Stable:
//   - KeyID, PublicKeyFromKeyID and the PEM encode/parse helpers.
//
// Experimental:
//   - KeyStore and the Dilithium3 helpers.
package keys
