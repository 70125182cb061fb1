package main

func helper() int { // want "before Trace.enter"
	return 1
}

func unused() int {
	return 2
}

func main() { // want "before Trace.enter"
	helper()
}
