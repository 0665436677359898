package main

import (
	// Asia/Seoul must resolve on hosts without a zoneinfo database
	_ "time/tzdata"
)

func main() {
	Execute()
}
