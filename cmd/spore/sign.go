package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/spore/internal/observability/logger"
	"github.com/dropDatabas3/spore/internal/record"
	"github.com/dropDatabas3/spore/internal/signer"
)

const maxLine = 16 << 20

func newSignCmd(a *app) *cobra.Command {
	var (
		in      string
		workers int
		batch   int
	)

	cmd := &cobra.Command{
		Use:   "sign [record|fields]",
		Short: "Firma registros JSON-lines de stdin (o --in) y los escribe en stdout con valores base64",
		Long: `Cada línea de entrada es un objeto {"campo":"valor",...}; el orden de los campos se respeta.
record: agrega el campo de firma sobre la codificación canónica del registro.
fields: concatena a cada valor la firma de ese valor.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"record", "fields"},
		RunE: func(cmd *cobra.Command, args []string) error {
			modeName := a.cfg.Signer.Mode
			if len(args) == 1 {
				modeName = args[0]
			}
			mode, err := signer.ParseMode(modeName)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Signer.Workers
			}

			s, _, err := a.loadSigner(cmd.Context())
			if err != nil {
				return err
			}

			r := cmd.InOrStdin()
			if in != "" && in != "-" {
				f, err := os.Open(in)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return signStream(cmd.Context(), s, r, cmd.OutOrStdout(), mode, workers, batch)
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "archivo JSON-lines de entrada (default stdin)")
	cmd.Flags().IntVar(&workers, "workers", 0, "goroutines de firma (0 => GOMAXPROCS)")
	cmd.Flags().IntVar(&batch, "batch", 256, "registros por lote")
	return cmd
}

// signStream lee, firma por lotes y escribe en el mismo orden de entrada.
func signStream(ctx context.Context, s *signer.KeySigner, r io.Reader, w io.Writer, mode signer.Mode, workers, batch int) error {
	if batch <= 0 {
		batch = 1
	}
	log := logger.Named("cli").With(logger.Op("sign_" + mode.String()))

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	bw := bufio.NewWriter(w)

	start := time.Now()
	total := 0
	pending := make([]*record.Record, 0, batch)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.SignRecords(ctx, pending, mode, workers); err != nil {
			return err
		}
		for _, rec := range pending {
			b, err := rec.MarshalBase64JSON()
			if err != nil {
				return err
			}
			bw.Write(b)
			bw.WriteByte('\n')
		}
		total += len(pending)
		pending = pending[:0]
		return nil
	}

	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		rec, err := record.ParseJSON(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		pending = append(pending, rec)
		if len(pending) == batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	log.Info("records signed", logger.Count(total), logger.Duration(time.Since(start)), zap.Int("signature_size", s.SignatureSize()))
	return nil
}
