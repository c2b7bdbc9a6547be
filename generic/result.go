package generic

// Unwrap_ panics if err is not nil, for calls that can only fail through programmer error.
func Unwrap_(err error) {
	if err != nil {
		panic(err)
	}
}
