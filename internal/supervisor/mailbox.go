package supervisor

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/nacl/box"
)

// mailbox is the append-only, restricted-permission directory for
// emergency reports: any worker may report a rogue Supervisor into it, but the
// Supervisor process itself is never given a method to read or list its
// contents — only the operator, holding the matching private key, can
// decrypt what lands here.
type mailbox struct {
	dir    string
	pubKey *[32]byte
	log    zerolog.Logger
}

func newMailbox(dir, pubKeyPath string, log zerolog.Logger) *mailbox {
	log = log.With().Str("component", "supervisor.mailbox").Logger()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("could not create emergency mailbox directory")
	}
	m := &mailbox{dir: dir, log: log}
	if pubKeyPath == "" {
		return m
	}
	raw, err := os.ReadFile(pubKeyPath)
	if err != nil {
		log.Warn().Err(err).Msg("could not read operator public key; emergency reports will fail closed")
		return m
	}
	var key [32]byte
	decoded, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil || len(decoded) != 32 {
		log.Warn().Msg("operator public key is not a valid base64-encoded 32-byte nacl box key")
		return m
	}
	copy(key[:], decoded)
	m.pubKey = &key
	return m
}

// Report asymmetrically encrypts payload to the operator's public key
// (nacl/box: an ephemeral sender keypair per message, so no long-lived
// sender key exists to be stolen from a compromised worker) and appends it
// as a new, uniquely-named file. Never overwrites or reads an existing
// file, preserving the directory's append-only property.
func (m *mailbox) Report(agentAlias string, payload []byte) error {
	if m.pubKey == nil {
		return fmt.Errorf("supervisor: emergency mailbox has no operator public key configured")
	}

	senderPub, senderPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("supervisor: generate ephemeral mailbox keypair: %w", err)
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("supervisor: generate mailbox nonce: %w", err)
	}

	sealed := box.Seal(nil, payload, &nonce, m.pubKey, senderPriv)

	out := make([]byte, 0, 32+24+len(sealed))
	out = append(out, senderPub[:]...)
	out = append(out, nonce[:]...)
	out = append(out, sealed...)

	name := fmt.Sprintf("%s-%s.msg", time.Now().UTC().Format("20060102T150405"), ulid.Make().String())
	path := filepath.Join(m.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("supervisor: create mailbox entry: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("supervisor: write mailbox entry: %w", err)
	}
	return nil
}

// RecordEmergency handles an agent's [[EMERGENCY]]...[[/EMERGENCY]] report.
// A write
// failure is logged but never surfaced back to the Supervisor's own
// decision-making or returned as a fatal error — the caller only gets
// confirmation that the attempt was made.
func (s *Supervisor) RecordEmergency(agentAlias string, payload []byte) {
	if s.mailbox == nil {
		s.log.Warn().Str("alias", agentAlias).Msg("emergency report dropped: no mailbox configured")
		return
	}
	if err := s.mailbox.Report(agentAlias, payload); err != nil {
		s.log.Error().Err(err).Str("alias", agentAlias).Msg("supervisor_emergency_write_failed")
		return
	}
	s.log.Info().Str("alias", agentAlias).Msg("emergency report delivered to mailbox")
}
