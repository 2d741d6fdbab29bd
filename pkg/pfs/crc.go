package pfs

// PFS directories key entries by a CRC of the filename rather than the
// name itself. The polynomial is the IEEE one but fed MSB-first with a
// zero initial value and no final inversion, so stdlib hash/crc32
// cannot produce it.

var crcTable = func() [256]uint32 {
	var table [256]uint32
	const poly = 0x04C11DB7
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// NameCRC returns the directory checksum of a filename. The stored
// name's terminating NUL participates in the sum.
func NameCRC(name string) uint32 {
	var crc uint32
	for i := 0; i <= len(name); i++ {
		var b byte
		if i < len(name) {
			b = name[i]
		}
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
