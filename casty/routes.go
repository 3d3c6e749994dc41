package casty

import (
	"casty.app/casty/devices"
)

// MediaRouteMenuItemID identifies the item added by AddMediaRouteMenuItem.
const MediaRouteMenuItemID = "casty_media_route_menu_item"

// Router is the side of Casty a route selection control talks to.
type Router interface {
	Routes() []devices.Device
	SelectRoute(dev devices.Device) error
	DeselectRoute() error
	IsConnected() bool
	ConnectedRoute() (devices.Device, bool)
}

// RouteSelector is a media route selection control. Attach wires it to a
// router, Show opens it.
type RouteSelector interface {
	Attach(r Router)
	Show() error
}

// MenuItem is an entry of an options menu.
type MenuItem struct {
	ID     string
	Title  string
	Action func()
}

// Menu is an options menu that accepts items.
type Menu interface {
	Add(item MenuItem)
}

var _ Router = (*Casty)(nil)
