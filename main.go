package main

import "github.com/killallgit/course-api/cmd"

// @title           Course Generation API
// @version         1.0.0
// @description     Streams course and learning-segment generation as server-sent events
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/course-api
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
