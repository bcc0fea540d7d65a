package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jrschumacher/rpkica/internal/crypto"
)

var (
	keygenPrivOut string
	keygenPubOut  string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an ECDSA P-256 CA signing key pair",
	Run: func(_ *cobra.Command, _ []string) {
		runKeygen()
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenPrivOut, "private-out", "ca-signing-key.pem", "output path for the private key")
	keygenCmd.Flags().StringVar(&keygenPubOut, "public-out", "ca-signing-key.pub.pem", "output path for the public key")
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen() {
	kp, err := crypto.GenerateSigningKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}

	privPEM, err := kp.EncodePrivateKeyPEM()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(keygenPrivOut, privPEM, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: writing private key: %v\n", err)
		os.Exit(1)
	}

	pubPEM, err := kp.EncodePublicKeyPEM()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(keygenPubOut, pubPEM, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: writing public key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("CA signing key written to %s and %s\n", keygenPrivOut, keygenPubOut)
}
