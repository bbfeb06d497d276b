package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// 监听地址
	ListenAddr = "0.0.0.0"
	// 默认端口
	DefaultPort = 3000
	// 默认日志级别
	DefaultLogLevel = "info"
)

// 环境变量
const (
	EnvPort     = "PORT"
	EnvMuxPort  = "MUX_PORT"
	EnvLogLevel = "LOG_LEVEL"
)

// Config holds everything the server reads at startup. It is not modified
// after LoadConfig returns.
type Config struct {
	Port int
	// MuxPort is 0 when the yamux listener is disabled.
	MuxPort  int
	LogLevel string
}

// Addr returns the wildcard listen address for the greeting port.
func (c Config) Addr() string {
	return joinAddr(c.Port)
}

// MuxAddr returns the wildcard listen address for the yamux port.
func (c Config) MuxAddr() string {
	return joinAddr(c.MuxPort)
}

func joinAddr(port int) string {
	return ListenAddr + ":" + strconv.Itoa(port)
}

// ResolvePort turns a PORT value into a TCP port. An empty value yields
// DefaultPort.
func ResolvePort(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultPort, nil
	}
	return parsePort(value)
}

// ResolveMuxPort is like ResolvePort but an empty value disables the listener.
func ResolveMuxPort(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return parsePort(value)
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: not an integer", value)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q: out of range 1-65535", value)
	}
	return port, nil
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (Config, error) {
	port, err := ResolvePort(os.Getenv(EnvPort))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvPort, err)
	}
	muxPort, err := ResolveMuxPort(os.Getenv(EnvMuxPort))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvMuxPort, err)
	}
	level := os.Getenv(EnvLogLevel)
	if level == "" {
		level = DefaultLogLevel
	}
	return Config{Port: port, MuxPort: muxPort, LogLevel: level}, nil
}
