package oggpage

// checksumTable implements the Ogg-specific CRC-32 variant:
// polynomial 0x04C11DB7, direct (non-reflected) form, seed 0, no input or
// output reflection, no final XOR. This is a different algorithm from the
// EBML CRC-32 (which is the standard reflected IEEE/zlib variant, served by
// hash/crc32 in tagkit/ebml) — Ogg's checksum needs its own table-driven
// implementation, grounded on the direct-form byte-at-a-time update seen
// across the pack's Ogg readers (e.g. the tag library's oggCRCUpdate).
var checksumTable = buildTable(0x04C11DB7)

func buildTable(poly uint32) [256]uint32 {
	var t [256]uint32
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

// updateChecksum folds p into crc using the direct-form table.
func updateChecksum(crc uint32, p []byte) uint32 {
	for _, b := range p {
		crc = (crc << 8) ^ checksumTable[byte(crc>>24)^b]
	}
	return crc
}

// ComputeChecksum computes a page's checksum over its full wire bytes
// (header + segment table + payload), with bytes 22..25 (the stored
// checksum field) treated as zero for the purpose of computation.
// pageBytes is mutated in place to zero those bytes and restored before
// returning.
func ComputeChecksum(pageBytes []byte) uint32 {
	if len(pageBytes) < headerFixedSize {
		return updateChecksum(0, pageBytes)
	}
	var saved [4]byte
	copy(saved[:], pageBytes[22:26])
	pageBytes[22], pageBytes[23], pageBytes[24], pageBytes[25] = 0, 0, 0, 0
	crc := updateChecksum(0, pageBytes)
	copy(pageBytes[22:26], saved[:])
	return crc
}
