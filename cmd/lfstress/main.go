// Command lfstress runs the end-to-end stress scenarios from the lfslab
// allocator's design against a real Heap, outside of the test binary.
package main

func main() {
	execute()
}
