package pricing

// Room is a room of a contractor estimate. Its blocks are flat: they never nest.
type Room struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	SortOrder int     `json:"sortOrder"`
	Blocks    []Block `json:"blocks"`
}

const roomBlockPrefix = "room:"

// RoomBlockID is the block ID a room takes in the aggregated tree.
func RoomBlockID(roomID string) string {
	return roomBlockPrefix + roomID
}

// RoomBlocks lays rooms out as root blocks with their blocks as direct children,
// so contractor and designer estimates share one aggregation path.
func RoomBlocks(rooms []Room) []Block {
	var blocks []Block
	for _, room := range rooms {
		roomID := RoomBlockID(room.ID)
		blocks = append(blocks, Block{ID: roomID, Title: room.Name, SortOrder: room.SortOrder})
		for _, b := range room.Blocks {
			b.ParentID = roomID
			blocks = append(blocks, b)
		}
	}
	return blocks
}
