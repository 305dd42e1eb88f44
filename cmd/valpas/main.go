// Valpas - compliance gate for transit gateway attachments.
// Discover. Check. Decide.
package main

func main() {
	Execute()
}
