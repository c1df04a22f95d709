package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	idNode     *snowflake.Node
	idNodeOnce sync.Once
)

// UUIDint64 returns a time-ordered unique int64 id
func UUIDint64() int64 {
	idNodeOnce.Do(func() {
		node, err := snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
		idNode = node
	})
	return idNode.Generate().Int64()
}

// IsEmpty reports whether s is empty after trimming whitespace
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IfEmptyStr returns def when s is empty
func IfEmptyStr(s, def string) string {
	if IsEmpty(s) {
		return def
	}
	return s
}
