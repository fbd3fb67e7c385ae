package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
)

const prompt = "qkv> "

// runInteractive reads commands line by line until exit or EOF
func runInteractive(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Connected to %d replicas (R=%d, W=%d, %s quorums)\n",
		len(clientConfig.Quorum.Replicas),
		clientConfig.Quorum.ReadQuorum,
		clientConfig.Quorum.WriteQuorum,
		clientConfig.Quorum.Policy,
	)
	_, _ = fmt.Fprintln(out, "Commands: put <key> <value>, get <key>, view, stats, help, exit")
	return interact(cmd.InOrStdin(), out, spacedValues)
}

// interact runs the command loop. With spaced set, the rest of a put line is the value.
func interact(in io.Reader, out io.Writer, spaced bool) error {
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch strings.ToLower(fields[0]) {
		case "put":
			key, value, ok := splitPut(scanner.Text(), spaced)
			if !ok {
				err = fmt.Errorf("usage: put <key> <value>")
				break
			}
			err = put(out, key, value)
		case "get":
			if len(fields) != 2 {
				err = fmt.Errorf("usage: get <key>")
				break
			}
			err = get(out, fields[1])
		case "view":
			printView(out, coordinator.View())
		case "stats":
			gometrics.WriteOnce(coordinator.Metrics(), out)
		case "help":
			_, _ = fmt.Fprintln(out, "Commands: put <key> <value>, get <key>, view, stats, help, exit")
		case "exit", "quit":
			return nil
		default:
			err = fmt.Errorf("unknown command %q (try help)", fields[0])
		}

		if err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

// splitPut returns key and value of a put line. If spaced is false the line must
// have exactly three words, otherwise everything after the key is the value.
func splitPut(line string, spaced bool) (string, string, bool) {
	if !spaced {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return "", "", false
		}
		return fields[1], fields[2], true
	}

	rest := nextWord(strings.TrimSpace(line)) // drop the command
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		return "", "", false
	}
	key, value := rest[:end], strings.TrimSpace(rest[end:])
	return key, value, value != ""
}

// nextWord returns s without its first word and the whitespace after it
func nextWord(s string) string {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return ""
	}
	return strings.TrimLeftFunc(s[end:], unicode.IsSpace)
}
