package client

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ValentinKolb/qKV/lib/quorum"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Writes the value for a key to a write quorum",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return put(cmd.OutOrStdout(), args[0], args[1])
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key from a read quorum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(cmd.OutOrStdout(), args[0])
		},
	}
	viewCmd = &cobra.Command{
		Use:   "view",
		Short: "Prints the read and write quorum (a sample draw with the per-operation policy)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printView(cmd.OutOrStdout(), coordinator.View())
		},
	}
)

// put writes key=value and prints the assigned version
func put(w io.Writer, key, value string) error {
	res, err := coordinator.Put(key, value)
	if err != nil {
		if errors.Is(err, quorum.ErrLockNotAcquired) {
			return fmt.Errorf("put failed, key %q is locked by another writer (try again later): %w", key, err)
		}
		return fmt.Errorf("put failed: %w", err)
	}

	_, _ = fmt.Fprintf(w, "put successfully: key=%s, version=%d, replicas=%s\n", key, res.Version, strings.Join(res.Written, ","))
	if len(res.Failed) > 0 {
		_, _ = fmt.Fprintf(w, "warning: not written to %s (anti-entropy will repair them)\n", strings.Join(res.Failed, ","))
	}
	return nil
}

// get reads key and prints the value with the highest version
func get(w io.Writer, key string) error {
	res, err := coordinator.Get(key)
	switch {
	case errors.Is(err, quorum.ErrKeyNotFound):
		_, _ = fmt.Fprintf(w, "key=%s, found=false\n", key)
		return nil
	case err != nil:
		return fmt.Errorf("get failed: %w", err)
	}

	_, _ = fmt.Fprintf(w, "key=%s, found=true, value=%s, version=%d, replica=%s\n", key, res.Value, res.Version, res.Replica)
	return nil
}

func printView(w io.Writer, view quorum.View) {
	_, _ = fmt.Fprintf(w, "read quorum:  %s\n", strings.Join(view.Read, ","))
	_, _ = fmt.Fprintf(w, "write quorum: %s\n", strings.Join(view.Write, ","))
}
