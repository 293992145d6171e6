// Command kvsql is a minimal line client: one positional argument, the
// server address, defaulting to 127.0.0.1:8080. No history or completion,
// mirroring the reference client's own minimal connect/send/read loop.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kvsql/kvsql/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kvsql [server-address]",
		Short: "connect to a kvsqld server and run SQL statements",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := "127.0.0.1:8080"
			if len(args) == 1 {
				addr = args[0]
			}
			return run(addr)
		},
		SilenceUsage: true,
	}
	return cmd
}

// client tracks the server-reported transaction version to render the
// prompt the way the reference client's Client.transaction_version did.
type client struct {
	conn    net.Conn
	reader  *bufio.Reader
	version string // empty when no transaction is open
}

func run(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("kvsql: connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	c := &client{conn: conn, reader: bufio.NewReader(conn)}
	stdin := bufio.NewScanner(os.Stdin)

	fmt.Print(c.prompt())
	for stdin.Scan() {
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			fmt.Print(c.prompt())
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "quit;") {
			break
		}
		if err := c.execute(line); err != nil {
			return err
		}
		fmt.Print(c.prompt())
	}

	if c.version != "" {
		_ = c.execute("ROLLBACK;")
	}
	return stdin.Err()
}

func (c *client) prompt() string {
	if c.version != "" {
		return "transaction#" + c.version + ">> "
	}
	return "sql-db>> "
}

func (c *client) execute(line string) error {
	if _, err := fmt.Fprintln(c.conn, line); err != nil {
		return fmt.Errorf("kvsql: sending statement: %w", err)
	}
	for {
		resp, err := c.reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("kvsql: reading response: %w", err)
		}
		resp = strings.TrimRight(resp, "\n")
		if resp == server.Sentinel {
			return nil
		}
		c.trackTransaction(resp)
		fmt.Println(resp)
	}
}

// trackTransaction updates c.version when resp is one of the
// TRANSACTION <v> BEGIN/COMMIT/ROLLBACK lines the server emits.
func (c *client) trackTransaction(resp string) {
	fields := strings.Fields(resp)
	if len(fields) != 3 || fields[0] != "TRANSACTION" {
		return
	}
	switch fields[2] {
	case "BEGIN":
		c.version = fields[1]
	case "COMMIT", "ROLLBACK":
		c.version = ""
	}
}
