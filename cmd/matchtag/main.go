// Command matchtag tags soccer match reports and serves lookups over the
// tagged corpus.
package main

func main() {
	Execute()
}
