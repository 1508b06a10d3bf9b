// Package all registers every platform provider with the default registry.
// Import for side effects:
//
//	import _ "github.com/clipfetch/clipfetch/provider/all"
package all

import (
	_ "github.com/clipfetch/clipfetch/provider/dailymotion"
	_ "github.com/clipfetch/clipfetch/provider/tiktok"
	_ "github.com/clipfetch/clipfetch/provider/twitter"
	_ "github.com/clipfetch/clipfetch/provider/youtube"
)
