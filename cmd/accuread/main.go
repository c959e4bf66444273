// Command accuread runs the AccuRead meter capture engine.
package main

func main() {
	Execute()
}
