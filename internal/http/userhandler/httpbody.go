package userhandler

type CredentialsBody struct {
	Username string `json:"username" binding:"required"       example:"alice"`
	Password string `json:"password" binding:"required,min=6" example:"hunter22"`
} // @name CredentialsRequest

type SignupResponse struct {
	ID string `json:"id"`
} // @name SignupResponse

type SigninResponse struct {
	Token string `json:"token"`
} // @name SigninResponse
