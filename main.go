// @title Query Clash API
// @version 1.0
// @description Backend of the Query Clash SQL investigation game.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"log"

	"github.com/spf13/cobra"
)

const releaseVersion = "1.0.0"

func main() {
	log.SetFlags(0)
	cobra.CheckErr(newCmd().Execute())
}
