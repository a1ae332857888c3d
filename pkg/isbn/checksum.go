package isbn

// CheckDigit10 computes the ISBN-10 check character over a 9-digit body.
// The body must contain only ASCII digits.
func CheckDigit10(body string) byte {
	sum := 0
	for i := 0; i < len(body); i++ {
		sum += int(body[i]-'0') * (10 - i)
	}

	switch r := sum % 11; r {
	case 0:
		return '0'
	case 1:
		return 'X'
	default:
		return byte('0' + 11 - r)
	}
}

// CheckDigit13 computes the ISBN-13 check digit over a 12-digit body.
// The body must contain only ASCII digits.
func CheckDigit13(body string) byte {
	sum := 0
	for i := 0; i < len(body); i++ {
		d := int(body[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}

	r := sum % 10
	if r == 0 {
		return '0'
	}
	return byte('0' + 10 - r)
}
