package domain

import "strings"

var priorityAliases = map[string]Priority{
	"high":   PriorityHigh,
	"alta":   PriorityHigh,
	"medium": PriorityMedium,
	"media":  PriorityMedium,
	"low":    PriorityLow,
	"baja":   PriorityLow,
}

var typeAliases = map[string]RequestType{
	"support":      TypeSupport,
	"soporte":      TypeSupport,
	"improvement":  TypeImprovement,
	"mejora":       TypeImprovement,
	"development":  TypeDevelopment,
	"desarrollo":   TypeDevelopment,
	"training":     TypeTraining,
	"capacitación": TypeTraining,
	"capacitacion": TypeTraining,
}

var channelAliases = map[string]Channel{
	"chat":    ChannelChat,
	"email":   ChannelEmail,
	"correo":  ChannelEmail,
	"system":  ChannelSystem,
	"sistema": ChannelSystem,
}

// Priorities in descending urgency.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func ParsePriority(raw string) (Priority, bool) {
	p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// NormalizePriority defaults unknown values to Medium.
func NormalizePriority(raw string) Priority {
	if p, ok := ParsePriority(raw); ok {
		return p
	}
	return PriorityMedium
}

func ParseRequestType(raw string) (RequestType, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(raw))]
	return t, ok
}

// NormalizeRequestType defaults unknown values to Support.
func NormalizeRequestType(raw string) RequestType {
	if t, ok := ParseRequestType(raw); ok {
		return t
	}
	return TypeSupport
}

func ParseChannel(raw string) (Channel, bool) {
	c, ok := channelAliases[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

// NormalizeChannel defaults unknown values to System.
func NormalizeChannel(raw string) Channel {
	if c, ok := ParseChannel(raw); ok {
		return c
	}
	return ChannelSystem
}

func ParseRating(raw string) (FeedbackRating, bool) {
	switch FeedbackRating(strings.ToLower(strings.TrimSpace(raw))) {
	case RatingUp:
		return RatingUp, true
	case RatingDown:
		return RatingDown, true
	}
	return "", false
}

// ValidLevel reports whether level is one of the support tiers 1..3.
func ValidLevel(level int) bool {
	return level >= 1 && level <= 3
}
