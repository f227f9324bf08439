package symtab

// hash is the djb2/gnu-hash variant fixed by spec §4.3: 33-multiplier, seed
// 5381. Used to accelerate name lookups in both the variable scope chain and
// the function table before falling back to full string comparison.
func hash(name string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(name); i++ {
		h = h*33 + uint32(name[i])
	}
	return h
}
