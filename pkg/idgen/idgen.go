// Package idgen derives stable UUIDs and multicast addresses from a
// node seed, so a node's identity survives process restarts without
// persisting any state.
package idgen

import (
	"crypto/sha1"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// Namespace is the fixed UUID namespace every node identifier is
// derived under. It is a constant of the protocol, not configuration.
var Namespace = uuid.MustParse("18daddcf-a234-4f59-808a-dbf6a42e17bb")

// Kind identifies which resource an ID is being derived for.
type Kind string

const (
	KindNode     Kind = "node"
	KindDevice   Kind = "device"
	KindSource   Kind = "source"
	KindFlow     Kind = "flow"
	KindSender   Kind = "sender"
	KindReceiver Kind = "receiver"
)

// ID derives a version-5 (SHA-1, name-based) UUID for the given kind
// and internal id, inside a per-seed namespace that is itself the
// version-5 UUID of seed under the fixed Namespace. The node and
// device kinds take an empty internalID. Same (seed, kind, internalID)
// always yields the same UUID, on any platform.
func ID(seed string, kind Kind, internalID string) uuid.UUID {
	name := "/x-nmos/node/" + string(kind) + "/" + internalID
	ns := uuid.NewSHA1(Namespace, []byte(seed))
	return uuid.NewSHA1(ns, []byte(name))
}

// NodeID derives the node's own UUID from its seed.
func NodeID(seed string) uuid.UUID {
	return ID(seed, KindNode, "")
}

// DeviceID derives the single device's UUID from its seed.
func DeviceID(seed string) uuid.UUID {
	return ID(seed, KindDevice, "")
}

// SourceSpecificMulticastV4 derives a deterministic multicast address
// for one leg of a sender, inside 232.0.1.0/24-232.255.255.0/24: hash
// "<senderID>/<leg>", take the low 32 bits of the SHA-1 digest in
// network order, force the first octet to 232 and set the low bit of
// the third octet (so the address is never the reserved .0 base of a
// /24 multicast block).
func SourceSpecificMulticastV4(senderID uuid.UUID, leg int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s/%d", senderID.String(), leg)))
	b := sum[len(sum)-4:]
	ip := net.IPv4(232, b[1], b[2]|1, b[3])
	return ip.String()
}
