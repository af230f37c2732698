package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	protocolPrefix      = "AGD"
	protocolSuffixLen   = 6
	protocolMaxAttempts = 3
)

// NewProtocol собирает номер записи вида AGD-<мс в base36>-<6 случайных символов>.
func NewProtocol(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:protocolSuffixLen]
	return strings.ToUpper(protocolPrefix + "-" + ts + "-" + suffix)
}
