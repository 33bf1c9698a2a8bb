// Package register writes the MCP client configuration entry that starts
// this binary's serve subcommand.
package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrUsage is returned for malformed register arguments.
var ErrUsage = errors.New("invalid register arguments")

type mcpServerEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Registration is a parsed register command line.
type Registration struct {
	ServerName string
	Scope      string // "project" or "user"
	Directory  string // project scope only
	ServerArgs []string
}

// Parse reads `project [directory] [-- serve-flags...]` or
// `user [-- serve-flags...]`.
func Parse(serverName string, args []string) (Registration, error) {
	if len(args) == 0 {
		return Registration{}, fmt.Errorf("%w: scope is required", ErrUsage)
	}
	reg := Registration{ServerName: serverName, Scope: args[0]}
	switch reg.Scope {
	case "project":
		reg.Directory, reg.ServerArgs = parseProjectArgs(args[1:])
	case "user":
		reg.ServerArgs = parseUserArgs(args[1:])
	default:
		return Registration{}, fmt.Errorf("%w: unknown scope %q (must be \"project\" or \"user\")", ErrUsage, reg.Scope)
	}
	return reg, nil
}

// Run parses args and writes the entry for the running binary.
func Run(serverName string, args []string, stdout io.Writer) error {
	reg, err := Parse(serverName, args)
	if err != nil {
		return err
	}
	binaryPath, err := detectBinaryPath()
	if err != nil {
		return err
	}
	configPath, err := reg.ConfigPath()
	if err != nil {
		return err
	}
	entry, err := reg.entry(binaryPath)
	if err != nil {
		return err
	}
	if err := writeConfig(configPath, serverName, entry); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Registered %q in %s\n", serverName, configPath)
	return nil
}

// PrintUsage writes the register usage text.
func PrintUsage(w io.Writer) {
	binaryName := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s register project [directory]       # → <directory>/.mcp.json, serves reports under <directory>\n", binaryName)
	fmt.Fprintf(w, "  %s register user -- -report run.blast # → ~/.claude.json\n", binaryName)
	fmt.Fprintf(w, "  %s register project . -- -root data   # forward serve flags\n", binaryName)
}

// DeriveServerName extracts a server name from a binary path by stripping .exe and -mcp suffixes.
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, "-mcp")
	return name
}

func parseProjectArgs(args []string) (directory string, serverArgs []string) {
	directory = "."
	for i, arg := range args {
		if arg == "--" {
			return directory, args[i+1:]
		}
		if i == 0 {
			directory = arg
		}
	}
	return directory, nil
}

func parseUserArgs(args []string) (serverArgs []string) {
	for i, arg := range args {
		if arg == "--" {
			return args[i+1:]
		}
	}
	return nil
}

func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("getting executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

// ConfigPath returns the client config file the entry goes into.
func (r Registration) ConfigPath() (string, error) {
	if r.Scope == "project" {
		absDir, err := filepath.Abs(r.Directory)
		if err != nil {
			return "", fmt.Errorf("resolving directory %s: %w", r.Directory, err)
		}
		return filepath.Join(absDir, ".mcp.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude.json"), nil
}

// serveArgs returns the serve command line. A project registration without
// forwarded flags serves the reports under the project directory.
func (r Registration) serveArgs() ([]string, error) {
	args := []string{"serve"}
	if len(r.ServerArgs) > 0 {
		return append(args, r.ServerArgs...), nil
	}
	if r.Scope == "project" {
		absDir, err := filepath.Abs(r.Directory)
		if err != nil {
			return nil, fmt.Errorf("resolving directory %s: %w", r.Directory, err)
		}
		return append(args, "-root", absDir), nil
	}
	return nil, fmt.Errorf("%w: user scope needs serve flags after --, e.g. -- -report run.blast", ErrUsage)
}

func (r Registration) entry(binaryPath string) (mcpServerEntry, error) {
	args, err := r.serveArgs()
	if err != nil {
		return mcpServerEntry{}, err
	}
	return buildEntry(binaryPath, args), nil
}

func buildEntry(binaryPath string, args []string) mcpServerEntry {
	if runtime.GOOS == "windows" {
		return mcpServerEntry{
			Command: "cmd",
			Args:    append([]string{"/C", binaryPath}, args...),
		}
	}
	return mcpServerEntry{Command: binaryPath, Args: args}
}

// writeConfig adds or replaces serverName under mcpServers, keeping every
// other key of the file.
func writeConfig(configPath string, serverName string, entry mcpServerEntry) error {
	config := map[string]any{
		"mcpServers": map[string]any{},
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("parsing existing config %s: %w", configPath, err)
		}
	}

	servers, ok := config["mcpServers"]
	if !ok {
		servers = map[string]any{}
		config["mcpServers"] = servers
	}
	serversMap, ok := servers.(map[string]any)
	if !ok {
		return fmt.Errorf("mcpServers in %s is not an object", configPath)
	}
	serversMap[serverName] = entry

	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	output = append(output, '\n')

	configDir := filepath.Dir(configPath)
	tmpFile, err := os.CreateTemp(configDir, ".mcp-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", configDir, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(output); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, configPath, err)
	}
	return nil
}
