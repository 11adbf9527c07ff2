package domain

import (
	"sort"
	"strings"
)

// ChannelKey is the deterministic identity of one conversation context.
type ChannelKey string

type ChannelKind int

const (
	RoomChannel ChannelKind = iota
	PrivateChannel
	GroupChannel
)

const (
	roomPrefix    = "room:"
	privatePrefix = "pm:"
	groupPrefix   = "group:"
	pairSeparator = "|"
)

// ChannelDescriptor is a tagged variant: RoomOf(name), PrivateOf(a, b) or GroupOf(name).
// Build it with the constructors below rather than by hand.
type ChannelDescriptor struct {
	Kind  ChannelKind
	Name  string
	Peers [2]string
}

func RoomOf(name string) ChannelDescriptor {
	return ChannelDescriptor{Kind: RoomChannel, Name: name}
}

func PrivateOf(userA, userB string) ChannelDescriptor {
	return ChannelDescriptor{Kind: PrivateChannel, Peers: [2]string{userA, userB}}
}

func GroupOf(name string) ChannelDescriptor {
	return ChannelDescriptor{Kind: GroupChannel, Name: name}
}

// Derive maps a descriptor to its channel key. It is pure, callers guarantee non-empty names.
// Private keys sort both usernames so that Derive(PrivateOf(a, b)) == Derive(PrivateOf(b, a)).
func Derive(d ChannelDescriptor) ChannelKey {
	switch d.Kind {
	case PrivateChannel:
		pair := []string{d.Peers[0], d.Peers[1]}
		sort.Strings(pair)
		return ChannelKey(privatePrefix + strings.Join(pair, pairSeparator))
	case GroupChannel:
		return ChannelKey(groupPrefix + d.Name)
	default:
		return ChannelKey(roomPrefix + d.Name)
	}
}

func (k ChannelKey) String() string {
	return string(k)
}
