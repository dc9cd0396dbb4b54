package wire

import "reflect"

var typeRegistry = map[string]reflect.Type{}

func init() {
	// Register all event types
	RegisterType(&ViewUpdated{})
	RegisterType(&LikeUpdated{})
	RegisterType(&CommentAdded{})
	RegisterType(&CommentRemoved{})
	RegisterType(&CommentLikeUpdated{})
	RegisterType(&CommentTyping{})
	RegisterType(&FollowCreated{})
	RegisterType(&FavoriteUpdated{})
	RegisterType(&NotificationPushed{})
	RegisterType(&RoomJoin{})
	RegisterType(&RoomLeave{})
	RegisterType(&Batch{})
}

func RegisterType(ev Event) {
	typeRegistry[ev.Kind()] = reflect.TypeOf(ev).Elem()
}

// KnownKind reports whether the kind is part of the closed taxonomy.
func KnownKind(kind string) bool {
	_, ok := typeRegistry[kind]
	return ok
}
