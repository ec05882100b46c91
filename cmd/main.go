/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package main

/*****************************************************************************************************************/

func main() {
	Execute()
}

/*****************************************************************************************************************/
