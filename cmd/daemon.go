package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrschumacher/rpkica/internal/aspa"
	"github.com/jrschumacher/rpkica/internal/cache"
	"github.com/jrschumacher/rpkica/internal/crypto"
	"github.com/jrschumacher/rpkica/internal/logger"
	"github.com/jrschumacher/rpkica/internal/resources"
	"github.com/jrschumacher/rpkica/internal/signer"
)

var daemonKeyPath string

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Aliases: []string{"run"},
	Short:   "Run the session cache sweep and ASPA renewal housekeeping loop",
	Run: func(_ *cobra.Command, _ []string) {
		runDaemon()
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonKeyPath, "signing-key", "", "path to a PEM-encoded CA signing key, as written by 'rpkica keygen' (an ephemeral in-memory key is generated if unset)")
	rootCmd.AddCommand(daemonCmd)
}

// timingConfig adapts the loaded Config to aspa.IssuanceTiming.
type timingConfig struct {
	validityDays int
}

func (t timingConfig) NewAspaValidity() aspa.Validity {
	now := time.Now()
	return aspa.Validity{NotBefore: now, NotAfter: now.AddDate(0, 0, t.validityDays)}
}

func runDaemon() {
	sessionCache := cache.NewSessionCache(
		cache.WithCipher(crypto.ChaCha20Poly1305Cipher{}),
		cache.WithTTLSeconds(cfg.SessionCacheTTLSeconds),
	)

	keyPair, err := loadOrGenerateSigningKey(daemonKeyPath)
	if err != nil {
		logger.Error("daemon: unable to obtain signing key", "error", err)
		os.Exit(1)
	}

	ledger, err := signer.OpenLedger(cfg.SerialLedgerPath)
	if err != nil {
		logger.Error("daemon: unable to open serial ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	sgnr := signer.NewSigner(keyPair, ledger)
	timing := timingConfig{validityDays: cfg.AspaNewValidityDays}

	// Definitions and per-resource-class object sets normally come from
	// the CA's durable, event-sourced store (out of scope here); this
	// daemon wires the renewal path against an in-memory set so the
	// housekeeping loop itself is exercised end-to-end.
	certifiedKey := signer.CertifiedKey{
		ID:          sgnr.KeyID,
		ResourceSet: resources.NewSet(),
		CRL:         "rsync://rpki.example.net/repo/ca.crl",
		CAIssuer:    "rsync://rpki.example.net/repo/ca.cer",
		SubjectName: "CN=rpkica",
		BaseURI:     "rsync://rpki.example.net/repo",
	}
	objectSet := aspa.NewObjectSet()

	ticker := time.NewTicker(time.Duration(cfg.SessionCacheTTLSeconds) * time.Second)
	defer ticker.Stop()

	logger.Info("daemon: housekeeping loop started", "sweep_interval_s", cfg.SessionCacheTTLSeconds)
	for range ticker.C {
		if err := sessionCache.Sweep(); err != nil {
			logger.Warn("daemon: session cache sweep failed", "error", err)
		}

		var renewThreshold *int64
		if cfg.AspaRenewThresholdDays > 0 {
			t := time.Now().AddDate(0, 0, cfg.AspaRenewThresholdDays).Unix()
			renewThreshold = &t
		}

		batch, err := objectSet.Renew(certifiedKey, renewThreshold, timing, sgnr)
		if err != nil {
			logger.Warn("daemon: aspa renewal failed, retrying next tick", "error", err)
			continue
		}
		objectSet.Updated(batch)
		if len(batch.Updated) > 0 {
			logger.Info("daemon: renewed ASPA objects", "count", len(batch.Updated))
		}
	}
}

func loadOrGenerateSigningKey(path string) (*crypto.SigningKeyPair, error) {
	if path == "" {
		return crypto.GenerateSigningKeyPair()
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return crypto.DecodeSigningKeyPairPEM(pemBytes)
}
