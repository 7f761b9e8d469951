package rod

// findJS returns at most one visible element matching a locator.
// Arguments: pattern, match kind, regexp flags.
const findJS = `(pattern, match, flags) => {
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) return false;
		const s = window.getComputedStyle(el);
		return s.visibility !== "hidden" && s.display !== "none" && s.opacity !== "0";
	};
	let found = [];
	if (match === "css") {
		found = Array.from(document.querySelectorAll(pattern));
	} else if (match === "text") {
		const re = new RegExp(pattern, flags);
		const clickable = "a, button, input[type=submit], input[type=button], [role=button], [onclick]";
		found = Array.from(document.querySelectorAll(clickable)).filter((el) => {
			const label = (el.innerText || el.value || el.getAttribute("aria-label") || "").trim();
			return re.test(label);
		});
	} else if (match === "attr") {
		const i = pattern.indexOf("=");
		const name = pattern.slice(0, i);
		const re = new RegExp(pattern.slice(i + 1), flags);
		found = Array.from(document.querySelectorAll("[" + CSS.escape(name) + "]")).filter((el) => re.test(el.getAttribute(name) || ""));
	}
	return found.filter(visible).slice(0, 1);
}`

// infoJS serializes the element it is called on.
const infoJS = `() => {
	const attrs = {};
	for (const a of this.attributes) attrs[a.name] = a.value;
	const text = (this.innerText || this.value || "").trim().slice(0, 500);
	return {tag: this.tagName.toLowerCase(), text: text, href: this.href ? String(this.href) : "", attrs: attrs};
}`

// submitJS submits the form that owns the element, using the element as
// submitter when it is a submit control.
const submitJS = `() => {
	const form = this.tagName === "FORM" ? this : (this.form || this.closest("form"));
	if (!form) { this.click(); return; }
	const submitter = this !== form && this.type === "submit" ? this : undefined;
	if (form.requestSubmit) form.requestSubmit(submitter); else form.submit();
}`

// blobJS reads a blob: URI inside the page and returns it base64 encoded.
const blobJS = `async (u) => {
	const res = await fetch(u);
	const blob = await res.blob();
	const data = await new Promise((resolve, reject) => {
		const fr = new FileReader();
		fr.onload = () => resolve(fr.result);
		fr.onerror = () => reject(fr.error);
		fr.readAsDataURL(blob);
	});
	return {mime: blob.type, data: String(data).slice(String(data).indexOf(",") + 1)};
}`

const userAgentJS = `() => navigator.userAgent`
