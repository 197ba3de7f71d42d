package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
)

type console struct {
	server string
	user   string
	// A hair longer than the gateway's reply timeout so the server
	// side times out first with a proper error body.
	http *http.Client
}

func main() {
	server := flag.String("server", "http://localhost:3210", "wyrmhold server URL")
	user := flag.String("user", "cli-user", "name recorded on directives")
	flag.Parse()

	c := &console{
		server: strings.TrimRight(*server, "/"),
		user:   *user,
		http:   &http.Client{Timeout: 65 * time.Second},
	}

	// One-shot: wyrmctl /status 0xabc
	if args := flag.Args(); len(args) > 0 {
		c.dispatch(strings.Join(args, " "))
		return
	}
	c.repl()
}

func (c *console) repl() {
	fmt.Printf("wyrmhold console — %s (as %s)\n", c.server, c.user)
	fmt.Println("/help lists commands, /agents lists the fleet, exit leaves.")
	c.listAgents()

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n» ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
		case "exit", "quit":
			return
		case "/agents":
			c.listAgents()
		default:
			c.dispatch(line)
		}
	}
}

type agentRow struct {
	Wallet     string `json:"wallet"`
	Enabled    bool   `json:"enabled"`
	Focus      string `json:"focus"`
	Strategy   string `json:"strategy"`
	TargetZone string `json:"target_zone"`
	Running    bool   `json:"running"`
}

func (c *console) listAgents() {
	resp, err := c.http.Get(c.server + "/api/agents")
	if err != nil {
		fail("agents: %v", err)
		return
	}
	defer resp.Body.Close()

	var rows []agentRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		fail("agents: %v", err)
		return
	}
	if len(rows) == 0 {
		fmt.Println("no agents registered")
		return
	}
	for _, a := range rows {
		state := "stopped"
		if a.Running {
			state = colorGreen + "running" + colorReset
		}
		line := fmt.Sprintf("  %-44s %s  focus=%s strategy=%s", a.Wallet, state, a.Focus, a.Strategy)
		if a.TargetZone != "" {
			line += " target=" + a.TargetZone
		}
		fmt.Println(line)
	}
}

// dispatch sends one slash command through the REST gateway and prints
// the agent reply.
func (c *console) dispatch(content string) {
	body, _ := json.Marshal(map[string]string{
		"user_id":   c.user,
		"user_name": c.user,
		"content":   content,
	})

	resp, err := c.http.Post(c.server+"/api/gateway/rest/command",
		"application/json", bytes.NewReader(body))
	if err != nil {
		fail("send: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		fail("server %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		return
	}

	var reply struct {
		Wallet  string `json:"wallet"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		fail("decode reply: %v", err)
		return
	}
	if reply.Wallet != "" {
		fmt.Printf("%s[%s]%s %s\n", colorCyan, reply.Wallet, colorReset, reply.Content)
		return
	}
	fmt.Println(reply.Content)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, colorRed+format+colorReset+"\n", args...)
}
