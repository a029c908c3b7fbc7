package main

const banner = `
 __  __                                 _
|  \/  | __ _  ___ _ __ ___  _ __   ___ | | ___
| |\/| |/ _' |/ __| '__/ _ \| '_ \ / _ \| |/ _ \
| |  | | (_| | (__| | | (_) | |_) | (_) | | (_) |
|_|  |_|\__,_|\___|_|  \___/| .__/ \___/|_|\___/
                            |_|
`

// GetBanner returns the ASCII art banner
func GetBanner() string {
	return banner
}
