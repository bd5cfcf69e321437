package core

// Reset forces singletons to be recreated. Useful between unit tests.
func Reset() {
	loggerOnce.Reset()
}
