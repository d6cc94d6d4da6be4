package main

import (
	"encoding/pem"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Ciclo de vida del par de claves",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Carga el par desde disco o genera uno nuevo y lo persiste",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, o, err := a.loadSigner(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "outcome=%s\n", o)
			fmt.Fprintf(out, "algorithm=%s\n", s.Algorithm())
			fmt.Fprintf(out, "fingerprint=%s\n", s.Fingerprint())
			fmt.Fprintf(out, "signature_size=%d\n", s.SignatureSize())
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Imprime la clave pública en PEM (genera el par si no existe)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.loadSigner(cmd.Context())
			if err != nil {
				return err
			}
			return pem.Encode(cmd.OutOrStdout(), &pem.Block{Type: "PUBLIC KEY", Bytes: s.PublicKeyDER()})
		},
	}

	keysCmd.AddCommand(initCmd, showCmd)
	return keysCmd
}
