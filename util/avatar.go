package util

import (
	"fmt"
	"net/url"

	"github.com/nutriscan/nutriscan-be/config"
)

// Avatar is the generated picture used until a user picks one.
func Avatar(seed string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/thumbs/png?seed=%v&size=%v", url.QueryEscape(seed), config.AVATAR_SIZE)
}
