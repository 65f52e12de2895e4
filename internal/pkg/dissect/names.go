package dissect

import "github.com/google/gopacket/layers"

// Value strings are taken from gopacket's enum names so labels agree with
// the layer types used for dispatch.

func etherTypeStrings() map[uint64]string {
	m := make(map[uint64]string)
	for _, t := range []layers.EthernetType{
		layers.EthernetTypeIPv4,
		layers.EthernetTypeARP,
		layers.EthernetTypeIPv6,
		layers.EthernetTypeDot1Q,
		layers.EthernetTypeQinQ,
		layers.EthernetTypeLinkLayerDiscovery,
		layers.EthernetTypeMPLSUnicast,
		layers.EthernetTypeMPLSMulticast,
		layers.EthernetTypePPPoEDiscovery,
		layers.EthernetTypePPPoESession,
	} {
		m[uint64(t)] = t.String()
	}
	return m
}

func ipProtocolStrings() map[uint64]string {
	m := make(map[uint64]string)
	for _, p := range []layers.IPProtocol{
		layers.IPProtocolICMPv4,
		layers.IPProtocolIGMP,
		layers.IPProtocolTCP,
		layers.IPProtocolUDP,
		layers.IPProtocolIPv6,
		layers.IPProtocolGRE,
		layers.IPProtocolESP,
		layers.IPProtocolAH,
		layers.IPProtocolICMPv6,
		layers.IPProtocolSCTP,
		layers.IPProtocolUDPLite,
	} {
		m[uint64(p)] = p.String()
	}
	return m
}

var flagNames = []struct {
	mask uint64
	name string
}{
	{0x100, "NS"},
	{0x080, "CWR"},
	{0x040, "ECE"},
	{0x020, "URG"},
	{0x010, "ACK"},
	{0x008, "PSH"},
	{0x004, "RST"},
	{0x002, "SYN"},
	{0x001, "FIN"},
}

var setStrings = map[uint64]string{0: "Not set", 1: "Set"}
