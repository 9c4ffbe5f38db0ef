package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pairwish/internal/push"
)

func runVAPIDKeys(cmd *cobra.Command, args []string) error {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("generate vapid keys: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "PAIRWISH_VAPID_PUBLIC_KEY=%s\n", pub)
	fmt.Fprintf(out, "PAIRWISH_VAPID_PRIVATE_KEY=%s\n", priv)
	return nil
}
