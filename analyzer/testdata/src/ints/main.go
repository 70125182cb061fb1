package main

func check(a, b int) {}

func main() {
	for i := 0; i < 3; i++ {
		check(i, i+1) // want `before Tracker.onCheck if \(x=main.main:\w+ && y!=main.main:\w+\)`
	}
}
