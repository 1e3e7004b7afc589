// ABOUTME: Admin CLI for managing raids on a sleeplocker server
// ABOUTME: Talks to the HTTP JSON API using the raid admin key

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
)

const banner = `
     _                _            _
 ___| | ___  ___ _ __| | ___   ___| | _____ _ __
/ __| |/ _ \/ _ \ '_ \ |/ _ \ / __| |/ / _ \ '__|
\__ \ |  __/  __/ |_) | | (_) | (__|   <  __/ |
|___/_|\___|\___| .__/|_|\___/ \___|_|\_\___|_|
                |_|                        admin
`

// cliConfig is the admin CLI configuration read from admin.toml.
// Raids maps a short alias to a saved admin key so commands can take
// "mc" instead of the full 20-character key.
type cliConfig struct {
	ServerURL string            `toml:"server_url"`
	Raids     map[string]string `toml:"raids"`
}

// getConfigPath returns the path to the admin CLI config file.
// Priority: SLEEPLOCKER_ADMIN_CONFIG env var > XDG_CONFIG_HOME/sleeplocker/admin.toml > ~/.config/sleeplocker/admin.toml
func getConfigPath() string {
	if envPath := os.Getenv("SLEEPLOCKER_ADMIN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "admin.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sleeplocker", "admin.toml")
}

// loadConfig reads admin.toml if it exists. A missing file is not an
// error; the CLI then relies on SLEEPLOCKER_URL and full keys.
func loadConfig() (*cliConfig, error) {
	cfg := &cliConfig{
		ServerURL: "http://localhost:8080",
		Raids:     make(map[string]string),
	}

	data, err := os.ReadFile(getConfigPath())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Raids == nil {
		cfg.Raids = make(map[string]string)
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8080"
	}

	return cfg, nil
}

// saveConfig writes the config back to admin.toml with restrictive
// permissions since it holds admin keys.
func saveConfig(cfg *cliConfig) error {
	path := getConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# sleeplocker-admin configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// resolveKey turns a raid alias from the config into its admin key.
// Anything that is not a known alias is treated as a literal key.
func (c *cliConfig) resolveKey(keyOrAlias string) string {
	if key, ok := c.Raids[keyOrAlias]; ok {
		return key
	}
	return keyOrAlias
}

// serverURL returns the API base URL; SLEEPLOCKER_URL overrides the config.
func (c *cliConfig) serverURL() string {
	if url := os.Getenv("SLEEPLOCKER_URL"); url != "" {
		return url
	}
	return c.ServerURL
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create":
		err = cmdCreate(cfg, args)
	case "status":
		err = cmdStatus(cfg, args)
	case "roster":
		err = cmdRoster(cfg, args)
	case "close":
		err = cmdClose(cfg, args)
	case "remove":
		err = cmdRemove(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: sleeplocker-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  create --title <t> --priorities <n>   Create a raid")
	fmt.Println("         [--dungeon <key>] [--comments <c>] [--save <alias>]")
	fmt.Println("  status <key|alias>                    Show raid details and signup count")
	fmt.Println("  roster <key|alias>                    List registered players")
	fmt.Println("  close <key|alias>                     Close the raid for registrations")
	fmt.Println("  remove <key|alias> --name <player>    Remove a player by name")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  SLEEPLOCKER_URL           Server base URL (default: http://localhost:8080)")
	fmt.Println("  SLEEPLOCKER_ADMIN_CONFIG  Config file path (default: ~/.config/sleeplocker/admin.toml)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  sleeplocker-admin create --title 'Molten Core' --priorities 2 --save mc")
	fmt.Println("  sleeplocker-admin roster mc")
	fmt.Println("  sleeplocker-admin remove mc --name Ragnaros")
	fmt.Println()
}

// apiEnvelope is the server's uniform response shape.
type apiEnvelope struct {
	Success  bool            `json:"success"`
	ErrorMsg *string         `json:"errorMsg"`
	Result   json.RawMessage `json:"result"`
}

// callAPI posts a JSON body to an endpoint and unwraps the envelope.
func callAPI(cfg *cliConfig, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := strings.TrimSuffix(cfg.serverURL(), "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", path, err)
	}

	if !env.Success {
		msg := "request failed"
		if env.ErrorMsg != nil {
			msg = *env.ErrorMsg
		}
		return nil, fmt.Errorf("%s", msg)
	}

	return env.Result, nil
}

// raidInfo mirrors the server's raid projection for admin callers.
type raidInfo struct {
	Title         string `json:"title"`
	UserKey       string `json:"userKey"`
	DungeonKey    string `json:"dungeonKey"`
	NumPriorities int    `json:"numPriorities"`
	Mode          int    `json:"mode"`
	CreatedOn     string `json:"createdOn"`
	Comments      string `json:"comments"`
}

type registrationInfo struct {
	UserName     string    `json:"userName"`
	Class        string    `json:"class"`
	Role         string    `json:"role"`
	Priorities   []*string `json:"priorities"`
	RegisteredOn string    `json:"registeredOn"`
}

func cmdCreate(cfg *cliConfig, args []string) error {
	var title, dungeon, comments, alias string
	var priorities int

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--title", "-t":
			if i+1 < len(args) {
				title = args[i+1]
				i++
			}
		case "--priorities", "-p":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err != nil {
					return fmt.Errorf("invalid priorities: %w", err)
				}
				priorities = n
				i++
			}
		case "--dungeon", "-d":
			if i+1 < len(args) {
				dungeon = args[i+1]
				i++
			}
		case "--comments", "-c":
			if i+1 < len(args) {
				comments = args[i+1]
				i++
			}
		case "--save", "-s":
			if i+1 < len(args) {
				alias = args[i+1]
				i++
			}
		}
	}

	if title == "" || priorities == 0 {
		return fmt.Errorf("usage: create --title <title> --priorities <n> [--dungeon <key>] [--comments <text>] [--save <alias>]")
	}

	result, err := callAPI(cfg, "/createRaid", map[string]any{
		"title":         title,
		"numPriorities": priorities,
		"dungeonKey":    dungeon,
		"comments":      comments,
	})
	if err != nil {
		return err
	}

	var adminKey string
	if err := json.Unmarshal(result, &adminKey); err != nil {
		return fmt.Errorf("decoding admin key: %w", err)
	}

	// Recover the user key for sharing with participants.
	result, err = callAPI(cfg, "/getRaid", map[string]any{"raidUserKey": adminKey})
	if err != nil {
		return err
	}
	var raid raidInfo
	if err := json.Unmarshal(result, &raid); err != nil {
		return fmt.Errorf("decoding raid: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	fmt.Println()
	green.Printf("  ✓ Created raid: %s\n", title)
	fmt.Println()
	cyan.Println("  Keys")
	cyan.Println("  ----")
	fmt.Printf("  Admin key (keep secret): %s\n", adminKey)
	fmt.Printf("  User key (share):        %s\n", raid.UserKey)
	fmt.Println()

	if alias != "" {
		cfg.Raids[alias] = adminKey
		if err := saveConfig(cfg); err != nil {
			return err
		}
		green.Printf("  ✓ Saved as %q in %s\n", alias, getConfigPath())
		fmt.Println()
	}

	return nil
}

func cmdStatus(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: status <key|alias>")
	}
	adminKey := cfg.resolveKey(args[0])

	result, err := callAPI(cfg, "/getRaidStatus", map[string]any{"raidAdminKey": adminKey})
	if err != nil {
		return err
	}

	var status struct {
		Raid          raidInfo           `json:"raid"`
		Registrations []registrationInfo `json:"registrations"`
	}
	if err := json.Unmarshal(result, &status); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println("  Raid")
	cyan.Println("  ----")
	fmt.Printf("  Title:      %s\n", status.Raid.Title)
	if status.Raid.DungeonKey != "" {
		fmt.Printf("  Dungeon:    %s\n", status.Raid.DungeonKey)
	}
	fmt.Printf("  User key:   %s\n", status.Raid.UserKey)
	fmt.Printf("  Priorities: %d\n", status.Raid.NumPriorities)
	if created, err := time.Parse(time.RFC3339, status.Raid.CreatedOn); err == nil {
		fmt.Printf("  Created:    %s\n", created.Format("Jan 02 2006 15:04"))
	}
	if status.Raid.Comments != "" {
		fmt.Printf("  Comments:   %s\n", status.Raid.Comments)
	}

	fmt.Printf("  Mode:       ")
	if status.Raid.Mode == 0 {
		green.Println("open")
	} else {
		yellow.Println("closed")
	}
	fmt.Printf("  Signups:    %d\n", len(status.Registrations))
	fmt.Println()

	return nil
}

func cmdRoster(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: roster <key|alias>")
	}
	adminKey := cfg.resolveKey(args[0])

	result, err := callAPI(cfg, "/getRaidStatus", map[string]any{"raidAdminKey": adminKey})
	if err != nil {
		return err
	}

	var status struct {
		Raid          raidInfo           `json:"raid"`
		Registrations []registrationInfo `json:"registrations"`
	}
	if err := json.Unmarshal(result, &status); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Printf("  Roster: %s\n", status.Raid.Title)
	cyan.Println("  " + strings.Repeat("-", 8+len(status.Raid.Title)))

	if len(status.Registrations) == 0 {
		fmt.Println("  (no signups)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tCLASS\tROLE\tPRIORITIES\tREGISTERED")
	fmt.Fprintln(w, "  ----\t-----\t----\t----------\t----------")

	for _, reg := range status.Registrations {
		var items []string
		for _, p := range reg.Priorities {
			if p != nil {
				items = append(items, *p)
			} else {
				items = append(items, "-")
			}
		}
		registered := reg.RegisteredOn
		if t, err := time.Parse(time.RFC3339, reg.RegisteredOn); err == nil {
			registered = t.Format("Jan 02 15:04")
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(reg.UserName, 24),
			reg.Class,
			reg.Role,
			truncate(strings.Join(items, ", "), 48),
			registered,
		)
	}
	w.Flush()
	fmt.Println()

	return nil
}

func cmdClose(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: close <key|alias>")
	}
	adminKey := cfg.resolveKey(args[0])

	if _, err := callAPI(cfg, "/setMode", map[string]any{
		"raidAdminKey": adminKey,
		"mode":         1,
	}); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Println("✓ Raid closed for registrations")
	return nil
}

func cmdRemove(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: remove <key|alias> --name <player>")
	}
	adminKey := cfg.resolveKey(args[0])

	var name string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--name", "-n":
			if i+1 < len(args) {
				name = args[i+1]
				i++
			}
		}
	}

	if name == "" {
		return fmt.Errorf("usage: remove <key|alias> --name <player>")
	}

	if _, err := callAPI(cfg, "/adminRemoveUser", map[string]any{
		"raidAdminKey": adminKey,
		"userName":     name,
	}); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Removed %s\n", name)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
