package normalize

import "strconv"

// ouiVendors maps the first three octets of a BSSID to its manufacturer.
// The table covers common consumer and SOHO access point vendors only.
var ouiVendors = map[string]string{
	"00:00:0C": "Cisco",
	"00:40:96": "Cisco",
	"00:1B:D4": "Cisco",
	"00:14:BF": "Linksys",
	"00:18:39": "Linksys",
	"C0:56:27": "Linksys",
	"00:09:5B": "Netgear",
	"00:14:6C": "Netgear",
	"A0:40:A0": "Netgear",
	"00:05:5D": "D-Link",
	"00:0D:88": "D-Link",
	"1C:7E:E5": "D-Link",
	"14:CC:20": "TP-Link",
	"50:C7:BF": "TP-Link",
	"F4:F2:6D": "TP-Link",
	"00:11:50": "Belkin",
	"94:44:52": "Belkin",
	"00:0C:6E": "ASUS",
	"04:D4:C4": "ASUS",
	"2C:56:DC": "ASUS",
	"00:27:22": "Ubiquiti",
	"24:A4:3C": "Ubiquiti",
	"F0:9F:C2": "Ubiquiti",
	"4C:5E:0C": "Mikrotik",
	"D4:CA:6D": "Mikrotik",
	"64:D1:54": "Mikrotik",
	"00:03:93": "Apple",
	"3C:07:54": "Apple",
	"00:1A:11": "Google",
}

// LookupVendor resolves a normalized BSSID to a vendor. Locally administered
// (randomized) addresses never resolve.
func LookupVendor(bssid string) string {
	if len(bssid) < 8 || IsLocallyAdministered(bssid) {
		return ""
	}
	return ouiVendors[bssid[:8]]
}

func IsLocallyAdministered(bssid string) bool {
	if len(bssid) < 2 {
		return false
	}
	first, err := strconv.ParseUint(bssid[:2], 16, 8)
	if err != nil {
		return false
	}
	return first&0x02 != 0
}
