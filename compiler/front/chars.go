package front

type (
	charset [4]uint64
)

var (
	spaces     = newCharset(' ', '\t', '\n', '\r')
	separators = newCharset('[', ']', '{', '}', '(', ')')
	quotes     = newCharset('\'', '`', '"')
	digits     = newCharset('0', '1', '2', '3', '4', '5', '6', '7', '8', '9')
)

func newCharset(cs ...byte) (s charset) {
	for _, c := range cs {
		s[c/64] |= 1 << (c % 64)
	}

	return
}

func (s charset) Has(c byte) bool {
	return s[c/64]&(1<<(c%64)) != 0
}

func (s charset) Skip(b string, st int) (i int) {
	i = st

	for i < len(b) && s.Has(b[i]) {
		i++
	}

	return
}
