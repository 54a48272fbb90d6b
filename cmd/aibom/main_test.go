package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aibom.dev/ledger/bom"
	"aibom.dev/ledger/hashing"
)

const testSeedHex = "0101010101010101010101010101010101010101010101010101010101010101"

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// isolate moves the test into an empty directory so no project config is
// picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	return dir
}

func addModel(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := bom.Decode(data)
	require.NoError(t, err)
	doc[bom.FieldComponents] = []any{map[string]any{
		"component_id": "c-weights",
		"type":         "model",
		"name":         "weights.safetensors",
		"fingerprint": map[string]any{
			"algorithm": "sha256",
			"hash":      strings.Repeat("ab", 32),
		},
	}}
	out, err := doc.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o644))
}

func keygen(t *testing.T, dir string) (priv, pub string) {
	t.Helper()
	r := runCLI(t, "keygen", "--outdir", dir, "--seed-hex", testSeedHex)
	require.Equal(t, exitOK, r.code, r.stderr)
	require.Contains(t, r.stdout, "key_id=")

	privs, err := filepath.Glob(filepath.Join(dir, "*.key"))
	require.NoError(t, err)
	require.Len(t, privs, 1)
	priv = privs[0]
	return priv, strings.TrimSuffix(priv, ".key") + ".pub"
}

func setVersion(t *testing.T, path, version string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := bom.Decode(data)
	require.NoError(t, err)
	doc[bom.FieldVersion] = version
	out, err := doc.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o644))
}

func TestRun_Usage(t *testing.T) {
	isolate(t)

	r := runCLI(t)
	assert.Equal(t, exitOK, r.code)
	assert.Contains(t, r.stdout, "aibom")

	r = runCLI(t, "nope")
	assert.Equal(t, exitUsage, r.code)
	assert.Contains(t, r.stderr, "unknown command")

	r = runCLI(t, "verify")
	assert.Equal(t, exitUsage, r.code)

	r = runCLI(t, "sign", "bom.json")
	assert.Equal(t, exitUsage, r.code)
	assert.Contains(t, r.stderr, "key")
}

func TestRun_SignVerifyDeployFlow(t *testing.T) {
	dir := isolate(t)

	r := runCLI(t, "init", "--dir", dir)
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Initialized ai-bom in")
	assert.DirExists(t, filepath.Join(dir, ".ai-bom", "keys"))
	bomPath := filepath.Join(dir, "ai-bom.json")
	require.FileExists(t, bomPath)

	r = runCLI(t, "init", "--dir", dir)
	assert.Equal(t, exitFailure, r.code)

	priv, pub := keygen(t, filepath.Join(dir, ".ai-bom", "keys"))

	// No model components: nothing to gate.
	r = runCLI(t, "deploy-check", "--dir", dir)
	assert.Equal(t, exitOK, r.code, r.stderr)

	addModel(t, bomPath)
	r = runCLI(t, "deploy-check", "--dir", dir)
	assert.Equal(t, exitRefused, r.code)
	assert.Contains(t, r.stderr, "Unsigned BOM with model artifacts")

	r = runCLI(t, "verify", bomPath)
	assert.Equal(t, exitFailure, r.code)
	assert.Contains(t, r.stdout, "Verification FAILED")

	hashBefore := runCLI(t, "hash", bomPath)
	require.Equal(t, exitOK, hashBefore.code)

	r = runCLI(t, "sign", bomPath, "--key", priv)
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Signed BOM and updated file")

	hashAfter := runCLI(t, "hash", bomPath)
	assert.Equal(t, hashBefore.stdout, hashAfter.stdout)

	r = runCLI(t, "verify", bomPath)
	assert.Equal(t, exitOK, r.code)
	assert.Contains(t, r.stdout, "Verification OK")

	r = runCLI(t, "verify", bomPath, "--public-key", pub)
	assert.Equal(t, exitOK, r.code)

	r = runCLI(t, "deploy-check", "--dir", dir)
	assert.Equal(t, exitOK, r.code)
	assert.Contains(t, r.stdout, "Deploy check passed")

	setVersion(t, bomPath, "9.9.9")
	r = runCLI(t, "verify", bomPath, "--public-key", pub)
	assert.Equal(t, exitFailure, r.code)
	assert.Contains(t, r.stdout, "Verification FAILED")

	// Presence-only by default; strict needs a valid signature.
	r = runCLI(t, "deploy-check", "--dir", dir)
	assert.Equal(t, exitOK, r.code)
	r = runCLI(t, "deploy-check", "--dir", dir, "--strict")
	assert.Equal(t, exitRefused, r.code)
}

func TestRun_VerifyAllListsSignatures(t *testing.T) {
	dir := isolate(t)
	require.Equal(t, exitOK, runCLI(t, "init", "--dir", dir).code)
	bomPath := filepath.Join(dir, "ai-bom.json")
	priv, _ := keygen(t, filepath.Join(dir, "keys"))

	require.Equal(t, exitOK, runCLI(t, "sign", bomPath, "--key", priv).code)
	require.Equal(t, exitOK, runCLI(t, "sign", bomPath, "--key", priv).code)

	r := runCLI(t, "verify", bomPath, "--all")
	assert.Equal(t, exitOK, r.code)
	assert.Contains(t, r.stdout, "[0] ed25519-sha256")
	assert.Contains(t, r.stdout, "[1] ed25519-sha256")
	assert.Contains(t, r.stdout, "Verification OK")
}

func TestRun_VerifyMissingPublicKeyFails(t *testing.T) {
	dir := isolate(t)
	require.Equal(t, exitOK, runCLI(t, "init", "--dir", dir).code)
	bomPath := filepath.Join(dir, "ai-bom.json")
	priv, _ := keygen(t, filepath.Join(dir, "keys"))
	require.Equal(t, exitOK, runCLI(t, "sign", bomPath, "--key", priv).code)

	r := runCLI(t, "verify", bomPath, "--public-key", filepath.Join(dir, "missing.pub"))
	assert.Equal(t, exitFailure, r.code)
	assert.Contains(t, r.stdout, "Verification FAILED")
}

func TestRun_DeployCheckWithoutBOM(t *testing.T) {
	dir := isolate(t)
	r := runCLI(t, "deploy-check", "--dir", dir)
	assert.Equal(t, exitUsage, r.code)
	assert.Contains(t, r.stderr, "No BOM file found")
}

func TestRun_DeployCheckFallsBackToBomJSON(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bom.json"), []byte(`{"name":"x","version":"1","components":[]}`), 0o644))
	r := runCLI(t, "deploy-check", "--dir", dir)
	assert.Equal(t, exitOK, r.code)
}

func TestRun_Hash(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1","name":"x","signatures":[]}`), 0o644))

	r := runCLI(t, "hash", path)
	require.Equal(t, exitOK, r.code)
	want, err := hashing.ContentHash(bom.Document{"name": "x", "version": "1"})
	require.NoError(t, err)
	assert.Equal(t, want+"\n", r.stdout)

	r = runCLI(t, "hash", "--cid", path)
	require.Equal(t, exitOK, r.code)
	assert.True(t, strings.HasPrefix(r.stdout, "b"))

	require.NoError(t, os.WriteFile(path, []byte(`{"n":1e400}`), 0o644))
	r = runCLI(t, "hash", path)
	assert.Equal(t, exitFailure, r.code)
}

func TestRun_Validate(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bom.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"name":"x","version":"1"}`), 0o644))
	r := runCLI(t, "validate", path)
	assert.Equal(t, exitOK, r.code)
	assert.Contains(t, r.stdout, "BOM is valid")

	bad := `{"name":"x","version":"1","components":[{"component_id":"c1","type":"model","name":"m","fingerprint":{"algorithm":"sha256","hash":"` + strings.Repeat("a", 63) + `"}}]}`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))
	r = runCLI(t, "validate", path)
	assert.Equal(t, exitFailure, r.code)

	r = runCLI(t, "sign", path, "--key", filepath.Join(dir, "none.key"))
	assert.Equal(t, exitFailure, r.code)
}

func TestRun_KeygenAlgorithms(t *testing.T) {
	dir := isolate(t)
	keysDir := filepath.Join(dir, "keys")

	r := runCLI(t, "keygen", "--outdir", keysDir, "--alg", "rsa")
	assert.Equal(t, exitUsage, r.code)

	r = runCLI(t, "keygen", "--outdir", keysDir, "--seed-hex", "abcd")
	assert.Equal(t, exitFailure, r.code)

	r = runCLI(t, "keygen", "--outdir", keysDir, "--alg", "dilithium3")
	require.Equal(t, exitOK, r.code, r.stderr)

	r = runCLI(t, "keygen", "--outdir", keysDir)
	require.Equal(t, exitOK, r.code, r.stderr)

	r = runCLI(t, "key", "list", "--outdir", keysDir)
	require.Equal(t, exitOK, r.code)
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	assert.Len(t, lines, 2)
	for _, l := range lines {
		assert.Contains(t, l, "private=true")
		assert.Contains(t, l, "public=true")
		assert.NotContains(t, l, "key_id=-")
	}
}

func TestRun_DilithiumSignVerify(t *testing.T) {
	dir := isolate(t)
	require.Equal(t, exitOK, runCLI(t, "init", "--dir", dir).code)
	bomPath := filepath.Join(dir, "ai-bom.json")
	keysDir := filepath.Join(dir, "keys")
	require.Equal(t, exitOK, runCLI(t, "keygen", "--outdir", keysDir, "--alg", "dilithium3").code)

	privs, err := filepath.Glob(filepath.Join(keysDir, "*.key"))
	require.NoError(t, err)
	require.Len(t, privs, 1)

	r := runCLI(t, "sign", bomPath, "--key", privs[0])
	require.Equal(t, exitOK, r.code, r.stderr)
	r = runCLI(t, "verify", bomPath, "--public-key", strings.TrimSuffix(privs[0], ".key")+".pub")
	assert.Equal(t, exitOK, r.code)
}

func TestRun_Compliance(t *testing.T) {
	dir := isolate(t)
	require.Equal(t, exitOK, runCLI(t, "init", "--dir", dir).code)

	r := runCLI(t, "compliance", filepath.Join(dir, "ai-bom.json"))
	require.Equal(t, exitOK, r.code, r.stderr)

	var report struct {
		Summary struct {
			Satisfied int `json:"satisfied"`
			Total     int `json:"total"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &report))
	assert.Equal(t, 5, report.Summary.Total)
}

func TestRun_StrictModeFromConfig(t *testing.T) {
	dir := isolate(t)
	require.Equal(t, exitOK, runCLI(t, "init", "--dir", dir).code)
	bomPath := filepath.Join(dir, "ai-bom.json")
	addModel(t, bomPath)
	priv, _ := keygen(t, filepath.Join(dir, "keys"))
	require.Equal(t, exitOK, runCLI(t, "sign", bomPath, "--key", priv).code)

	t.Setenv("AIBOM_POLICY_MODE", "strict")
	r := runCLI(t, "deploy-check", "--dir", dir)
	assert.Equal(t, exitOK, r.code, r.stderr)

	setVersion(t, bomPath, "2")
	r = runCLI(t, "deploy-check", "--dir", dir)
	assert.Equal(t, exitRefused, r.code)
	assert.Contains(t, r.stderr, "does not verify")
}

func TestRun_BadConfigIsUsageError(t *testing.T) {
	isolate(t)
	r := runCLI(t, "--config", "missing.yaml", "hash", "x.json")
	assert.Equal(t, exitUsage, r.code)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
