package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxPUUIDLength    = 100
	MinGameNameLength = 3
	MaxGameNameLength = 16
	MinTagLineLength  = 3
	MaxTagLineLength  = 5
)

var (
	puuidRegex   = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)
	tagLineRegex = regexp.MustCompile(`^[\p{L}\p{N}]+$`)
	// Riot allows letters from most scripts plus spaces and a few marks.
	gameNameRegex = regexp.MustCompile(`^[\p{L}\p{N} _.]+$`)
)

func ValidatePUUID(puuid string) error {
	if strings.TrimSpace(puuid) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPlayerID)
	}
	if len(puuid) > MaxPUUIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidPlayerID, MaxPUUIDLength)
	}
	if !puuidRegex.MatchString(puuid) {
		return fmt.Errorf("%w: invalid characters", ErrInvalidPlayerID)
	}
	return nil
}

func ValidateRiotID(gameName, tagLine string) error {
	n := utf8.RuneCountInString(gameName)
	if n < MinGameNameLength || n > MaxGameNameLength {
		return fmt.Errorf("%w: game name must be %d-%d characters", ErrInvalidRiotID, MinGameNameLength, MaxGameNameLength)
	}
	if !gameNameRegex.MatchString(gameName) {
		return fmt.Errorf("%w: game name contains invalid characters", ErrInvalidRiotID)
	}
	n = utf8.RuneCountInString(tagLine)
	if n < MinTagLineLength || n > MaxTagLineLength {
		return fmt.Errorf("%w: tag line must be %d-%d characters", ErrInvalidRiotID, MinTagLineLength, MaxTagLineLength)
	}
	if !tagLineRegex.MatchString(tagLine) {
		return fmt.Errorf("%w: tag line contains invalid characters", ErrInvalidRiotID)
	}
	return nil
}
