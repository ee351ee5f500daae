package linkedin

// tokenResponse is the token exchange endpoint's success body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// oauthError is the token endpoint's failure body.
type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// apiError is the structured error body carried by non-2xx REST responses.
type apiError struct {
	Message          string `json:"message"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Status           int    `json:"status"`
}

// ugcPost is the publish request body for a text share.
type ugcPost struct {
	Author          string          `json:"author"`
	LifecycleState  string          `json:"lifecycleState"`
	SpecificContent specificContent `json:"specificContent"`
	Visibility      visibility      `json:"visibility"`
}

type specificContent struct {
	ShareContent shareContent `json:"com.linkedin.ugc.ShareContent"`
}

type shareContent struct {
	ShareCommentary    commentary `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
}

type commentary struct {
	Text string `json:"text"`
}

type visibility struct {
	MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
}

// socialActionsResponse carries aggregate engagement counts for a post.
type socialActionsResponse struct {
	LikesSummary    likesSummary    `json:"likesSummary"`
	CommentsSummary commentsSummary `json:"commentsSummary"`
}

type likesSummary struct {
	TotalLikes int `json:"totalLikes"`
}

type commentsSummary struct {
	AggregatedTotalComments int `json:"aggregatedTotalComments"`
}
