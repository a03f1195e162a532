package service

import "fmt"

const resetMailTemplate = `Hewo %s :3,

Oh nooo, a wild missing password appeared!
It's okay, it happens to the best of us.

Follow this link to pick a new password:
%s

The link stops working in %d minutes.
If you didn't ask for this, just ignore this mail and carry on.

big hugs,
%s
`

func resetMailBody(username, link string, minutes int, siteName string) string {
	return fmt.Sprintf(resetMailTemplate, username, link, minutes, siteName)
}
