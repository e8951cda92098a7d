package utils

// readAttributeFunc reads an attribute the way WebDriver does: boolean
// properties such as checked report "true" or null, src and href report the
// resolved absolute URL, everything else comes from getAttribute.
const readAttributeFunc = `function(name) {
	if (name in this && typeof this[name] === 'boolean') {
		return this[name] ? 'true' : null;
	}
	if ((name === 'src' || name === 'href') && this.hasAttribute(name)) {
		return String(this[name]);
	}
	return this.getAttribute(name);
}`

const readTextFunc = `function() {
	return (this.innerText || this.textContent || '').trim();
}`
