package console

// LineBuffer is a single editable line. Editing only happens at the end.
type LineBuffer struct {
	runes []rune
}

// Append adds text to the end of the line.
func (b *LineBuffer) Append(text string) {
	b.runes = append(b.runes, []rune(text)...)
}

// Backspace removes the last character. It returns false when the line is
// already empty.
func (b *LineBuffer) Backspace() bool {
	if len(b.runes) == 0 {
		return false
	}
	b.runes = b.runes[:len(b.runes)-1]
	return true
}

// Take returns the line and clears it.
func (b *LineBuffer) Take() string {
	s := string(b.runes)
	b.runes = b.runes[:0]
	return s
}

// Reset clears the line.
func (b *LineBuffer) Reset() {
	b.runes = b.runes[:0]
}

// String returns the current line.
func (b *LineBuffer) String() string {
	return string(b.runes)
}

// Len returns the number of characters in the line.
func (b *LineBuffer) Len() int {
	return len(b.runes)
}
