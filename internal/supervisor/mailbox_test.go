package supervisor

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"
)

func writeOperatorKey(t *testing.T, dir string) (pubPath string, priv *[32]byte) {
	t.Helper()
	pub, priv, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)

	path := filepath.Join(dir, "operator.pub")
	encoded := base64.StdEncoding.EncodeToString(pub[:])
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o600))
	return path, priv
}

func TestMailboxReportIsDecryptableOnlyByOperatorKey(t *testing.T) {
	dir := t.TempDir()
	keyPath, operatorPriv := writeOperatorKey(t, filepath.Join(t.TempDir()))
	mb := newMailbox(filepath.Join(dir, "mailbox"), keyPath, zerolog.Nop())

	require.NoError(t, mb.Report("alice", []byte("the supervisor is misbehaving")))

	entries, err := os.ReadDir(filepath.Join(dir, "mailbox"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := os.ReadFile(filepath.Join(dir, "mailbox", entries[0].Name()))
	require.NoError(t, err)
	require.Greater(t, len(raw), 32+24)

	var senderPub [32]byte
	var nonce [24]byte
	copy(senderPub[:], raw[:32])
	copy(nonce[:], raw[32:56])
	ciphertext := raw[56:]

	plain, ok := box.Open(nil, ciphertext, &nonce, &senderPub, operatorPriv)
	require.True(t, ok)
	assert.Equal(t, "the supervisor is misbehaving", string(plain))
}

func TestMailboxHasNoReadOrListMethod(t *testing.T) {
	// The mailbox type intentionally exposes only Report. Supervisor.RecordEmergency
	// is write-only too: there is no method anywhere in this package that decrypts
	// or enumerates mailbox contents; delivery is strictly one-way.
	var mb any = &mailbox{}
	_, hasRead := mb.(interface{ Read() })
	_, hasList := mb.(interface{ List() })
	assert.False(t, hasRead)
	assert.False(t, hasList)
}

func TestMailboxReportFailsWithoutOperatorKey(t *testing.T) {
	dir := t.TempDir()
	mb := newMailbox(filepath.Join(dir, "mailbox"), "", zerolog.Nop())
	err := mb.Report("alice", []byte("hello"))
	assert.Error(t, err)
}

func TestSupervisorRecordEmergencyWithNoMailboxConfiguredDoesNotPanic(t *testing.T) {
	s, reg, _ := newTestSupervisor(t, DefaultConfig)
	agent := registerTestAgent(t, reg, "alice")
	assert.NotPanics(t, func() {
		s.RecordEmergency(agent.Alias, []byte("help"))
	})
}
