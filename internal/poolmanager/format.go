package poolmanager

import (
	"fmt"
	"strings"
	"time"

	"github.com/gengirish/database-connection-pool/pool"
)

// FormatPoolInfo returns a short human-readable summary of a pool.
func FormatPoolInfo(info PoolInfo) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Pool: %s\n", info.Name))
	sb.WriteString(fmt.Sprintf("Backend: %s\n", info.Backend))
	sb.WriteString(fmt.Sprintf("Connections: %d/%d (%d idle, %d in use)\n",
		info.Snapshot.Total, info.Snapshot.MaxPoolSize,
		info.Snapshot.Idle, info.Snapshot.InUse))
	sb.WriteString(fmt.Sprintf("Created: %s\n", formatTimeAgo(info.Snapshot.CreatedAt)))

	return sb.String()
}

// FormatSnapshot returns a detailed human-readable view of a snapshot.
func FormatSnapshot(s pool.Snapshot) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Connections: %d/%d (%.1f%% utilized)\n",
		s.Total, s.MaxPoolSize, s.Utilization*100))
	sb.WriteString(fmt.Sprintf("Idle: %d\n", s.Idle))
	sb.WriteString(fmt.Sprintf("In use: %d\n", s.InUse))
	sb.WriteString(fmt.Sprintf("Waiting borrowers: %d\n", s.Waiting))
	sb.WriteString(fmt.Sprintf("Created: %s\n", formatTimeAgo(s.CreatedAt)))
	sb.WriteString(fmt.Sprintf("Operations: %d acquired, %d released\n",
		s.Acquired, s.Released))

	if s.Timeouts > 0 {
		sb.WriteString(fmt.Sprintf("Acquire timeouts: %d\n", s.Timeouts))
	}
	if s.CreationFailures > 0 {
		sb.WriteString(fmt.Sprintf("Creation failures: %d\n", s.CreationFailures))
	}
	if s.ValidationFailures > 0 {
		sb.WriteString(fmt.Sprintf("Validation failures: %d\n", s.ValidationFailures))
	}
	if s.IdleEvicted > 0 || s.LifetimeEvicted > 0 {
		sb.WriteString(fmt.Sprintf("Evicted: %d idle, %d lifetime\n",
			s.IdleEvicted, s.LifetimeEvicted))
	}
	if s.LeaksDetected > 0 {
		sb.WriteString(fmt.Sprintf("Suspected leaks: %d\n", s.LeaksDetected))
	}

	return sb.String()
}

// formatTimeAgo renders a timestamp as a human-readable age.
func formatTimeAgo(t time.Time) string {
	duration := time.Since(t)

	seconds := int(duration.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%d seconds ago", seconds)
	}

	minutes := int(duration.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%d minutes ago", minutes)
	}

	hours := int(duration.Hours())
	if hours < 24 {
		return fmt.Sprintf("%d hours ago", hours)
	}

	days := int(duration.Hours() / 24)
	return fmt.Sprintf("%d days ago", days)
}
