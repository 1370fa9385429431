package roomhandler

type CreateRoomBody struct {
	RoomSlug  string `json:"roomSlug"  binding:"required" example:"lobby"`
	CreatedBy string `json:"createdBy"                    example:"user123"`
} // @name CreateRoomRequest

type CreateRoomResponse struct {
	Slug string `json:"slug" example:"lobby"`
} // @name CreateRoomResponse

type GetRoomsResponse struct {
	Rooms []string `json:"rooms"`
} // @name GetRoomsResponse
