package media

// Media group drives default folder placement of admitted files.
// ENUM(Text, Styles, Images, Fonts, Audio, Video, Misc, opf, ncx, other)
type Group int

// Kind of resource, selected by media type.
// ENUM(html, css, image, svg, font, audio, video, pdf, miscText, xml, opf, ncx, generic)
type Kind int

// Folder returns standard folder name for the group inside OEBPS.
func (g Group) Folder() string {
	switch g {
	case GroupOpf, GroupNcx, GroupOther:
		return ""
	default:
		return g.String()
	}
}

// ExternallyEditable reports if resources of this kind could be opened in
// external editor and therefore should be watched for modifications.
func (k Kind) ExternallyEditable() bool {
	switch k {
	case KindHtml, KindCss, KindImage, KindSvg, KindMiscText, KindXml, KindAudio, KindVideo:
		return true
	}
	return false
}

// Textual reports if resource content is text which may carry references to
// other resources.
func (k Kind) Textual() bool {
	switch k {
	case KindHtml, KindCss, KindSvg, KindMiscText, KindXml, KindOpf, KindNcx:
		return true
	}
	return false
}
