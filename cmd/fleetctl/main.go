// Command fleetctl is a thin single-shot development client for a
// running fleetledgerd: it assembles one move via MoveEncoder, posts it
// to /chain, and prints the response. It is not the excluded rich host
// CLI (bankers, colony management, interactive login) — only the
// dispatch-on-subcommand shape is grounded on the teacher's
// tools/console.go command loop; everything OwnWorld-specific is gone.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/invrn/fleetledger/internal/journal"
	"github.com/invrn/fleetledger/internal/moveencoder"
	"github.com/invrn/fleetledger/internal/receipt"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	serverURL := "http://localhost:8090"
	if v := os.Getenv("FLEET_SERVER"); v != "" {
		serverURL = v
	}
	proverKey := []byte(os.Getenv("FLEET_PROVER_KEY"))
	if len(proverKey) == 0 {
		proverKey = []byte("fleetctl-dev-key")
	}

	enc := moveencoder.New(receipt.NewLocalProver(proverKey))

	var (
		cmd journal.Command
		r   receipt.Receipt
		err error
	)

	switch strings.ToLower(os.Args[1]) {
	case "join":
		args := os.Args[2:]
		if len(args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: fleetctl join <gameid> <fleet> <random> <pos,pos,...>")
			os.Exit(1)
		}
		cmd, r, err = enc.Join(args[0], args[1], parseBoard(args[3]), args[2])
	case "fire":
		args := os.Args[2:]
		if len(args) < 7 {
			fmt.Fprintln(os.Stderr, "usage: fleetctl fire <gameid> <fleet> <random> <pos,pos,...> <target> <x> <y>")
			os.Exit(1)
		}
		x, y := atoiMust(args[5]), atoiMust(args[6])
		cmd, r, err = enc.Fire(args[0], args[1], parseBoard(args[3]), args[2], args[4], x, y)
	case "report":
		args := os.Args[2:]
		if len(args) < 6 {
			fmt.Fprintln(os.Stderr, "usage: fleetctl report <gameid> <fleet> <random> <pos,pos,...> <x> <y>")
			os.Exit(1)
		}
		x, y := atoiMust(args[4]), atoiMust(args[5])
		cmd, r, err = enc.Report(args[0], args[1], parseBoard(args[3]), args[2], x, y)
	case "wave":
		args := os.Args[2:]
		if len(args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: fleetctl wave <gameid> <fleet> <random> <pos,pos,...>")
			os.Exit(1)
		}
		cmd, r, err = enc.Wave(args[0], args[1], parseBoard(args[3]), args[2])
	case "win":
		args := os.Args[2:]
		if len(args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: fleetctl win <gameid> <fleet> <random> <pos,pos,...>")
			os.Exit(1)
		}
		cmd, r, err = enc.Win(args[0], args[1], parseBoard(args[3]), args[2])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "fleetctl: %v\n", err)
		os.Exit(1)
	}

	if err := post(serverURL, cmd, r); err != nil {
		fmt.Fprintf(os.Stderr, "fleetctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fleetctl <join|fire|report|wave|win> ...")
}

func atoiMust(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleetctl: invalid integer %q\n", s)
		os.Exit(1)
	}
	return n
}

func parseBoard(csv string) journal.BoardPositions {
	parts := strings.Split(csv, ",")
	board := make(journal.BoardPositions, 0, len(parts))
	for _, p := range parts {
		board = append(board, journal.PositionIndex(atoiMust(p)))
	}
	return board
}

func post(serverURL string, cmd journal.Command, r receipt.Receipt) error {
	body, err := json.Marshal(map[string]any{"cmd": cmd, "receipt": r})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := http.Post(serverURL+"/chain", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post /chain: %w", err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
