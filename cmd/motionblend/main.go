// motionblend: style-preserving motion transitions between BVH clips.
// Serves the transition pipeline over HTTP or runs it from the command line.
package main

func main() {
	Execute()
}
