package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/wordtrans/pkg/segment"
)

func newSegmentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment [text...]",
		Short: "Split text into word-safe parts of at most --max-len characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}
			maxLen := a.cfg.Segment.MaxLen
			if segment.Oversized(text, maxLen) {
				a.logger.Printf("text contains words longer than %d characters; they will be cut", maxLen)
			}
			for _, s := range segment.Split(text, maxLen) {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("max-len", segment.DefaultMaxLen, "Maximum part length in characters")
	return cmd
}
