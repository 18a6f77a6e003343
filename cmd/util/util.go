package util

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/shKV/rpc/bootstrap"
	"github.com/ValentinKolb/shKV/rpc/client"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/serializer"
	"github.com/ValentinKolb/shKV/rpc/transport"
	"github.com/ValentinKolb/shKV/rpc/transport/tcp"
	"github.com/ValentinKolb/shKV/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by shkv
	EnvPrefix = "shkv"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, common.DefaultEndpoint, WrapString("The address of the shKV server (host:port for tcp, a socket path for unix)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Timeout in seconds of a single request, 0 waits forever"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, WrapString("The largest request or response payload in bytes, must match the server"))

	key = "autostart"
	cmd.PersistentFlags().Bool(key, false, WrapString("Start a detached server process if no server is reachable"))

	key = "attach-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultAttachTimeoutSec, WrapString("How many seconds --autostart waits for the started server"))
}

// InitConfig loads .env files and initializes viper to read environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		Transport:     viper.GetString("transport"),
		Serializer:    viper.GetString("serializer"),
		TimeoutSecond: viper.GetInt("timeout"),
		MaxFrameSize:  viper.GetInt("max-frame-size"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.ByName(viper.GetString("serializer"))
}

// GetTransport creates the client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// GetServerTransport creates the server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// --------------------------------------------------------------------------
// Connecting
// --------------------------------------------------------------------------

// ConnectStore connects to the configured server. With --autostart a detached
// server process is started when nobody serves the endpoint yet.
func ConnectStore() (client.IRPCStore, error) {
	config := GetClientConfig()

	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	if _, err := GetTransport(); err != nil {
		return nil, err
	}
	newTransport := func() transport.IRPCClientTransport {
		t, _ := GetTransport()
		return t
	}

	if !viper.GetBool("autostart") {
		return client.NewRPCStore(config, newTransport(), s)
	}

	timeout := time.Duration(viper.GetInt("attach-timeout")) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	attachment, err := bootstrap.Attach(ctx, bootstrap.Options{
		Client:          config,
		Serializer:      s,
		ClientTransport: newTransport,
		Spawn:           func() error { return SpawnServer(config) },
	})
	if err != nil {
		return nil, err
	}
	return attachment.Store, nil
}

// SpawnServer starts "shkv serve" as a detached child process that outlives this one
func SpawnServer(config common.ClientConfig) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate shkv executable: %w", err)
	}

	child := exec.Command(exe, "serve",
		"--endpoint", config.Endpoint,
		"--transport", config.Transport,
		"--serializer", config.Serializer,
		"--max-frame-size", strconv.Itoa(config.MaxFrameSize),
	)
	child.SysProcAttr = detachedProcAttr()
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start server process: %w", err)
	}
	return child.Process.Release()
}
