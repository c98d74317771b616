package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const redacted = "******"

// PrintConfig writes the effective configuration to stdout with secrets hidden.
func PrintConfig(c *Config) {
	WriteConfig(os.Stdout, c)
}

func WriteConfig(w io.Writer, c *Config) {
	rows := [][2]string{
		{"log level", c.LogLevel},
		{"server port", c.Server.Port},
		{"database", fmt.Sprintf("%s@%s:%s/%s (migrate=%t)", c.Database.User, c.Database.Host, c.Database.Port, c.Database.Database, c.Database.Migrate)},
		{"rabbitmq", fmt.Sprintf("%s@%s:%s", c.RabbitMQ.User, c.RabbitMQ.Host, c.RabbitMQ.Port)},
		{"kafka", fmt.Sprintf("%s topic=%s", strings.Join(c.Kafka.Brokers, ","), c.Kafka.EventsTopic)},
		{"redis", fmt.Sprintf("%s db=%d ttl=%s", c.Redis.Addr, c.Redis.DB, c.Redis.RouteTTL)},
		{"distance", fmt.Sprintf("%s key=%s attempts=%d", c.Distance.Provider, mask(c.Distance.APIKey()), c.Distance.Attempts)},
		{"arrival radius km", fmt.Sprintf("%g", c.Dispatch.ArrivalRadiusKm)},
		{"default commission %", fmt.Sprintf("%g", c.Dispatch.DefaultCommissionPercent)},
		{"jwt secret", mask(c.Auth.JWTSecret)},
	}

	fmt.Fprintln(w, "Configuration:")
	for _, r := range rows {
		fmt.Fprintf(w, "  %-22s %s\n", r[0]+":", r[1])
	}
}

func mask(s string) string {
	if s == "" {
		return "<empty>"
	}
	return redacted
}
