package common

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	snowflakeOnce sync.Once
	snowflakeNode *snowflake.Node
)

func node() *snowflake.Node {
	snowflakeOnce.Do(func() {
		n, err := snowflake.NewNode(1)
		if err != nil {
			zap.S().Fatalf("snowflake node init error: %s", err.Error())
		}
		snowflakeNode = n
	})
	return snowflakeNode
}

// UUIDint64 returns a time ordered unique int64 id
func UUIDint64() int64 {
	return node().Generate().Int64()
}

// ShortCode builds a human friendly document code such as "F-2410-3KX9Q1"
// from a prefix, the creation time and a snowflake id.
func ShortCode(prefix string, at time.Time, id int64) string {
	tail := strings.ToUpper(strconv.FormatInt(id, 36))
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return prefix + "-" + at.Format("0601") + "-" + tail
}

// IsEmptyOrNA reports whether a string carries no usable value
func IsEmptyOrNA(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "N/A")
}

// Today returns the current date truncated to midnight in the local zone
func Today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
